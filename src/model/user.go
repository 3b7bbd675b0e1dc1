package model

import (
	"database/sql"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID                              int64     `json:"id"`
	Username                        string    `json:"username"`
	Email                           string    `json:"email"`
	Password                        string    `json:"-"`
	AuthProvider                    string    `json:"auth_provider,omitempty"`
	LoginCount                      int       `json:"login_count"`
	LastLoginAt                     NullTime  `json:"last_login_at"`
	LastLoginIP                     string    `json:"last_login_ip"`
	CreatedAt                       time.Time `json:"created_at"`
	UpdatedAt                       time.Time `json:"updated_at"`
	IsEmailVerified                 bool      `json:"is_email_verified"`
	EmailVerificationToken          string    `json:"-"`
	EmailVerificationTokenExpiresAt time.Time `json:"-"`
}

// NullTime is an alias for sql.NullTime for better JSON handling.
type NullTime sql.NullTime

func (nt NullTime) MarshalJSON() ([]byte, error) {
	if !nt.Valid {
		return []byte("null"), nil
	}
	return nt.Time.MarshalJSON()
}

func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

func (u *User) CreateUser(db *sql.DB) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.AuthProvider == "" {
		u.AuthProvider = "local"
	}

	query := `
	INSERT INTO users (username, email, password, auth_provider, is_email_verified, email_verification_token, email_verification_token_expires_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var emailTokenExpiresArg interface{}
	if u.EmailVerificationTokenExpiresAt.IsZero() {
		emailTokenExpiresArg = nil
	} else {
		emailTokenExpiresArg = u.EmailVerificationTokenExpiresAt
	}

	result, err := stmt.Exec(
		u.Username, u.Email, u.Password, u.AuthProvider, u.IsEmailVerified,
		nullIfEmpty(u.EmailVerificationToken), emailTokenExpiresArg,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return err
	}
	u.ID, err = result.LastInsertId()
	return err
}

const userColumns = `id, username, email, password, auth_provider, is_email_verified,
	COALESCE(email_verification_token, ''), COALESCE(email_verification_token_expires_at, '0001-01-01T00:00:00Z'),
	login_count, last_login_at, COALESCE(last_login_ip, ''), created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var lastLogin sql.NullTime
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Password, &u.AuthProvider, &u.IsEmailVerified,
		&u.EmailVerificationToken, &u.EmailVerificationTokenExpiresAt,
		&u.LoginCount, &lastLogin, &u.LastLoginIP, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.LastLoginAt = NullTime(lastLogin)
	return &u, nil
}

func GetUserByID(db *sql.DB, id int64) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func GetUserByVerificationToken(db *sql.DB, token string) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email_verification_token = ?`, token)
	return scanUser(row)
}

// MarkEmailVerified clears the verification token and flags the account verified.
func (u *User) MarkEmailVerified(db *sql.DB) error {
	_, err := db.Exec(`
		UPDATE users
		SET is_email_verified = 1, email_verification_token = NULL,
		    email_verification_token_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, u.ID)
	if err == nil {
		u.IsEmailVerified = true
		u.EmailVerificationToken = ""
	}
	return err
}

func (u *User) UpdateUserVerificationToken(db *sql.DB, token string, expiresAt time.Time) error {
	_, err := db.Exec(`
		UPDATE users
		SET email_verification_token = ?, email_verification_token_expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, token, expiresAt, u.ID)
	if err == nil {
		u.EmailVerificationToken = token
		u.EmailVerificationTokenExpiresAt = expiresAt
	}
	return err
}

func (u *User) UpdatePassword(db *sql.DB, hashedPassword string) error {
	_, err := db.Exec(`UPDATE users SET password = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, hashedPassword, u.ID)
	if err == nil {
		u.Password = hashedPassword
	}
	return err
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
