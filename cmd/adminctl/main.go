// Command adminctl creates an admin console account. The password is read
// from the terminal without echo.
//
// Usage:
//
//	adminctl -user root [-d postgres://...] [-c config.json]
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/classgate/internal/flagx"
	"github.com/dmitrijs2005/classgate/internal/server"
	"github.com/dmitrijs2005/classgate/internal/server/config"
	"golang.org/x/term"
)

const minPasswordLen = 8

func main() {
	username := strings.TrimSpace(flagx.LookupString(os.Args[1:], "user", "username"))
	if username == "" {
		log.Fatal("usage: adminctl -user <name>")
	}

	password, err := readPassword(os.Stdin, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := app.AdminService().CreateAdmin(ctx, username, password)
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}

	fmt.Printf("admin %q created (id %s)\n", admin.Username, admin.ID)
}

// readPassword prompts twice on a terminal. Piped input is read as a single
// line so the tool can be scripted.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return checkPassword([]byte(strings.TrimRight(line, "\r\n")))
	}

	fmt.Fprint(prompt, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}

	fmt.Fprint(prompt, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}

	if !bytes.Equal(first, second) {
		return "", errors.New("passwords do not match")
	}
	return checkPassword(first)
}

func checkPassword(p []byte) (string, error) {
	if len(p) < minPasswordLen {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return string(p), nil
}
