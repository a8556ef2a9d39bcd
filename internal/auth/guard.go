package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"abitickets/internal/logger"
)

type Role string

const (
	RoleAdmin    Role = "Admin"
	RolePurchase Role = "Purchase"
	RoleScanner  Role = "Scanner"
)

// Principal is one entry of the static credential list.
type Principal struct {
	Username string `json:"username"`
	Recht    Role   `json:"recht"`
}

var (
	ErrNoCredential      = errors.New("no token provided")
	ErrInvalidCredential = errors.New("invalid token or no permission")
)

// Guard maps bearer credentials to principals against a static list
// loaded from a JSON file. Authorization is synchronous and
// side-effect-free; anything that does not match a known principal is
// rejected the same way.
type Guard struct {
	path   string
	logger *logger.Logger

	mu    sync.RWMutex
	users []Principal
}

func NewGuard(path string, log *logger.Logger) (*Guard, error) {
	g := &Guard{path: path, logger: log}
	if err := g.Reload(); err != nil {
		return nil, err
	}
	return g, nil
}

// Reload re-reads the credential file. Wired to SIGHUP in main.
func (g *Guard) Reload() error {
	raw, err := os.ReadFile(g.path)
	if err != nil {
		return fmt.Errorf("read credentials file: %w", err)
	}
	var users []Principal
	if err := json.Unmarshal(raw, &users); err != nil {
		return fmt.Errorf("parse credentials file: %w", err)
	}

	g.mu.Lock()
	g.users = users
	g.mu.Unlock()
	g.logger.Info("AUTH", fmt.Sprintf("loaded %d principals from %s", len(users), g.path))
	return nil
}

// Authorize resolves a credential to a principal. The credential is
// base64 of "username:recht"; missing and malformed credentials differ
// only for diagnostics, never in access granted.
func (g *Guard) Authorize(credential string) (*Principal, error) {
	if credential == "" {
		return nil, ErrNoCredential
	}

	decoded, err := base64.StdEncoding.DecodeString(credential)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidCredential
	}
	username, recht := parts[0], Role(parts[1])

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, user := range g.users {
		if user.Username == username && user.Recht == recht {
			principal := user
			return &principal, nil
		}
	}
	return nil, ErrInvalidCredential
}

// EncodeCredential builds the wire form of a credential. Used by tests
// and provisioning scripts.
func EncodeCredential(username string, recht Role) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + string(recht)))
}
