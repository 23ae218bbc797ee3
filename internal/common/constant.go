package common

// SessionCookieName carries the locally issued session token.
const SessionCookieName = "accessToken"

// AdminCookieName carries the admin console token.
const AdminCookieName = "admin_token"

// AdminRole is the role claim stamped on admin console tokens.
const AdminRole = "admin"
