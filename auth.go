package folio

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	ctxAdmin  = "folio.admin"
	ctxClaims = "folio.claims"

	minPasswordLength = 8
)

// ErrInvalidToken is returned for a missing, malformed, expired or
// otherwise unacceptable admin token.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the JWT claims of an admin token. Subject is the admin id and
// ID (jti) identifies the login, scoping the editor drafts.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Authenticator issues and verifies HS256 admin tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator. The secret must not be empty.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for admin.
func (a *Authenticator) Issue(admin Admin) (string, *Claims, error) {
	now := a.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(admin.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Username: admin.Username,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, claims, nil
}

// Parse verifies the signature and expiry of token and returns its claims.
func (a *Authenticator) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// missingAdminHash is compared when a login names no admin, so unknown and
// known logins both pay for a bcrypt comparison.
var missingAdminHash = sync.OnceValue(func() string {
	b, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("folio: hash placeholder password: %v", err))
	}
	return string(b)
})

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAdmin rejects requests without a valid bearer token for an admin
// that still exists.
func (a *App) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := a.Auth.Parse(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidToken.Error())
		}
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidToken.Error())
		}
		admin, err := a.Store.GetAdmin(c.Request().Context(), id)
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "admin no longer exists")
		}
		if err != nil {
			return err
		}
		c.Set(ctxAdmin, admin)
		c.Set(ctxClaims, claims)
		return next(c)
	}
}

// CurrentAdmin returns the admin authenticated by RequireAdmin.
func CurrentAdmin(c echo.Context) (Admin, bool) {
	admin, ok := c.Get(ctxAdmin).(Admin)
	return admin, ok
}

// draftScope returns the login id that editor drafts are stored under.
func draftScope(c echo.Context) string {
	if claims, ok := c.Get(ctxClaims).(*Claims); ok {
		return claims.ID
	}
	return ""
}

type loginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      Admin     `json:"user"`
}

func (a *App) tokenResponse(c echo.Context, code int, admin Admin) error {
	token, claims, err := a.Auth.Issue(admin)
	if err != nil {
		return err
	}
	return c.JSON(code, tokenResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time.UTC(), User: admin})
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	login := req.Login
	if login == "" {
		login = req.Username
	}
	if login == "" {
		login = req.Email
	}
	if login == "" || req.Password == "" {
		return invalid("", "login and password are required")
	}
	admin, err := a.Store.FindAdmin(c.Request().Context(), login)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	hash := admin.PasswordHash
	if err != nil {
		hash = missingAdminHash()
	}
	if ok := CheckPassword(hash, req.Password); !ok || err != nil {
		a.loginLimiter.Record(ip)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	a.loginLimiter.Reset(ip)
	return a.tokenResponse(c, http.StatusOK, admin)
}

// handleLogout drops the editor drafts of the calling login. Tokens are
// stateless and stay valid until they expire.
func (a *App) handleLogout(c echo.Context) error {
	a.Drafts.ClearScope(draftScope(c))
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleMe(c echo.Context) error {
	admin, _ := CurrentAdmin(c)
	return c.JSON(http.StatusOK, admin)
}

func (a *App) handleAuthStatus(c echo.Context) error {
	n, err := a.Store.CountAdmins(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"has_admin": n > 0})
}

type setupRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (a *App) handleSetup(c echo.Context) error {
	var req setupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return err
	}
	admin, err := a.Store.CreateFirstAdmin(c.Request().Context(), req.Username, req.Email, hash)
	if err != nil {
		return err
	}
	c.Logger().Infof("created first admin %q", admin.Username)
	return a.tokenResponse(c, http.StatusCreated, admin)
}
