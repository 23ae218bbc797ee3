package api

import (
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/server/models"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	otpPattern   = regexp.MustCompile(`^[0-9]{4,8}$`)
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 2000
	maxBannerLen      = 500
)

type otpRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

func (r *otpRequest) Validate() error {
	v := common.NewValidationError()
	checkPhone(v, r.PhoneNumber)
	return v.OrNil()
}

type loginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	OTP         string `json:"otp"`
}

func (r *loginRequest) Validate() error {
	v := common.NewValidationError()
	checkPhone(v, r.PhoneNumber)
	if !otpPattern.MatchString(r.OTP) {
		v.Add("otp", "must be 4 to 8 digits")
	}
	return v.OrNil()
}

type enrollRequest struct {
	BatchID string `json:"batchId"`
}

func (r *enrollRequest) Validate() error {
	v := common.NewValidationError()
	r.BatchID = strings.TrimSpace(r.BatchID)
	if r.BatchID == "" {
		v.Add("batchId", "is required")
	}
	return v.OrNil()
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *adminLoginRequest) Validate() error {
	v := common.NewValidationError()
	if strings.TrimSpace(r.Username) == "" {
		v.Add("username", "is required")
	}
	if r.Password == "" {
		v.Add("password", "is required")
	}
	return v.OrNil()
}

type batchRequest struct {
	BatchID     string `json:"batchId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

func (r *batchRequest) Validate() error {
	v := common.NewValidationError()
	r.BatchID = strings.TrimSpace(r.BatchID)
	r.Name = strings.TrimSpace(r.Name)
	if r.BatchID == "" {
		v.Add("batchId", "is required")
	}
	if r.Name == "" {
		v.Add("name", "is required")
	} else if len(r.Name) > maxNameLen {
		v.Add("name", "is too long")
	}
	if len(r.Description) > maxDescriptionLen {
		v.Add("description", "is too long")
	}
	return v.OrNil()
}

// model defaults Active to true when omitted.
func (r *batchRequest) model() *models.Batch {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &models.Batch{BatchID: r.BatchID, Name: r.Name, Description: r.Description, Active: active}
}

type configRequest struct {
	MaintenanceMode bool   `json:"maintenanceMode"`
	MinAppVersion   string `json:"minAppVersion"`
	Banner          string `json:"banner"`
}

func (r *configRequest) Validate() error {
	v := common.NewValidationError()
	if len(r.Banner) > maxBannerLen {
		v.Add("banner", "is too long")
	}
	if len(r.MinAppVersion) > 32 {
		v.Add("minAppVersion", "is too long")
	}
	return v.OrNil()
}

func checkPhone(v *common.ValidationError, phone string) {
	if !phonePattern.MatchString(phone) {
		v.Add("phoneNumber", "must be 10 to 15 digits with an optional leading +")
	}
}

// Response views. Tokens never leave the server.

type userView struct {
	ID              string                 `json:"id"`
	PhoneNumber     string                 `json:"phoneNumber"`
	HasLoggedIn     bool                   `json:"hasLoggedIn"`
	EnrolledBatches []models.EnrolledBatch `json:"enrolledBatches"`
	CreatedAt       time.Time              `json:"createdAt"`
}

func newUserView(u *models.User) userView {
	batches := u.EnrolledBatches
	if batches == nil {
		batches = []models.EnrolledBatch{}
	}
	return userView{
		ID:              u.ID,
		PhoneNumber:     u.PhoneNumber,
		HasLoggedIn:     u.HasLoggedIn,
		EnrolledBatches: batches,
		CreatedAt:       u.CreatedAt,
	}
}

type userPage struct {
	Users  []userView `json:"users"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

type batchView struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batchId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newBatchView(b *models.Batch) batchView {
	return batchView{
		ID:          b.ID,
		BatchID:     b.BatchID,
		Name:        b.Name,
		Description: b.Description,
		Active:      b.Active,
		UpdatedAt:   b.UpdatedAt,
	}
}

type configView struct {
	MaintenanceMode bool      `json:"maintenanceMode"`
	MinAppVersion   string    `json:"minAppVersion"`
	Banner          string    `json:"banner"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func newConfigView(c *models.ServerConfig) configView {
	return configView{
		MaintenanceMode: c.MaintenanceMode,
		MinAppVersion:   c.MinAppVersion,
		Banner:          c.Banner,
		UpdatedAt:       c.UpdatedAt,
	}
}
