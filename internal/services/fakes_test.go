package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aims-admin/backend/internal/auth"
	"github.com/aims-admin/backend/internal/config"
	"github.com/aims-admin/backend/internal/events"
	"github.com/aims-admin/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

type pair [2]uuid.UUID

// memStore implements every store interface over maps.
type memStore struct {
	mu         sync.Mutex
	identities map[uuid.UUID]*models.Identity
	users      map[uuid.UUID]*models.User
	roles      map[uuid.UUID]*models.Role
	perms      map[uuid.UUID]*models.Permission
	userRoles  map[pair]models.UserRole
	rolePerms  map[pair]models.RolePermission
	direct     map[pair]models.UserPermission
	audits     []models.AuditLog

	failCreateUser error
	failTouchLogin error
	failAudit      error
}

func newMemStore() *memStore {
	return &memStore{
		identities: map[uuid.UUID]*models.Identity{},
		users:      map[uuid.UUID]*models.User{},
		roles:      map[uuid.UUID]*models.Role{},
		perms:      map[uuid.UUID]*models.Permission{},
		userRoles:  map[pair]models.UserRole{},
		rolePerms:  map[pair]models.RolePermission{},
		direct:     map[pair]models.UserPermission{},
	}
}

// identities

func (m *memStore) CreateIdentity(_ context.Context, email, hash string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.identities {
		if i.Email == email {
			return nil, ErrDuplicateEmail
		}
	}
	i := &models.Identity{ID: uuid.New(), Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	m.identities[i.ID] = i
	cp := *i
	return &cp, nil
}

func (m *memStore) GetIdentityByEmail(_ context.Context, email string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.identities {
		if i.Email == email {
			cp := *i
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) GetIdentityByID(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.identities[id]
	if !ok {
		return ErrNotFound
	}
	i.PasswordHash = hash
	return nil
}

func (m *memStore) DeleteIdentity(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.identities, id)
	// users.id references auth_identities.id ON DELETE CASCADE.
	delete(m.users, id)
	for k := range m.userRoles {
		if k[0] == id {
			delete(m.userRoles, k)
		}
	}
	return nil
}

// users

func (m *memStore) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateUser != nil {
		return nil, m.failCreateUser
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, ErrDuplicateEmail
		}
	}
	cp := *u
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) ListUsers(_ context.Context, f models.UserFilter) ([]models.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.User
	for _, u := range m.users {
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		if f.Search != "" && !strings.Contains(u.Email, strings.ToLower(f.Search)) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	return page(all, f.Offset, f.Limit), len(all), nil
}

func (m *memStore) SetUserActive(_ context.Context, id uuid.UUID, active bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.IsActive = active
	cp := *u
	return &cp, nil
}

func (m *memStore) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTouchLogin != nil {
		return m.failTouchLogin
	}
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

// roles

func (m *memStore) CreateRole(_ context.Context, r *models.Role) (*models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.roles {
		if existing.Name == r.Name {
			return nil, ErrConflict
		}
	}
	cp := *r
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.roles[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetRole(_ context.Context, id uuid.UUID) (*models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) GetRoleByName(_ context.Context, name string) (*models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) ListRoles(_ context.Context) ([]models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) UpdateRole(_ context.Context, id uuid.UUID, upd models.RoleUpdate) (*models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.DisplayName != nil {
		r.DisplayName = *upd.DisplayName
	}
	if upd.Description != nil {
		r.Description = upd.Description
	}
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func (m *memStore) DeleteRole(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	for k := range m.userRoles {
		if k[1] == id {
			return ErrRoleInUse
		}
	}
	for k := range m.rolePerms {
		if k[0] == id {
			delete(m.rolePerms, k)
		}
	}
	delete(m.roles, id)
	return nil
}

func (m *memStore) AssignRole(_ context.Context, userID, roleID uuid.UUID, by *uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pair{userID, roleID}
	if _, ok := m.userRoles[k]; ok {
		return false, nil
	}
	m.userRoles[k] = models.UserRole{UserID: userID, RoleID: roleID, AssignedBy: by, AssignedAt: time.Now()}
	return true, nil
}

func (m *memStore) RemoveRole(_ context.Context, userID, roleID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pair{userID, roleID}
	if _, ok := m.userRoles[k]; !ok {
		return false, nil
	}
	delete(m.userRoles, k)
	return true, nil
}

func (m *memStore) UserHasRole(_ context.Context, userID, roleID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.userRoles[pair{userID, roleID}]
	return ok, nil
}

func (m *memStore) CountRoleHolders(_ context.Context, roleID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.userRoles {
		if k[1] == roleID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UserRoles(_ context.Context, userID uuid.UUID) ([]models.UserRoleRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserRoleRow
	for k, ur := range m.userRoles {
		if k[0] != userID {
			continue
		}
		r := m.roles[k[1]]
		out = append(out, models.UserRoleRow{
			UserRole:        ur,
			RoleName:        r.Name,
			RoleDisplayName: r.DisplayName,
			IsSystemRole:    r.IsSystemRole,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleName < out[j].RoleName })
	return out, nil
}

func (m *memStore) GrantRolePermission(_ context.Context, roleID, permID uuid.UUID, by *uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pair{roleID, permID}
	if _, ok := m.rolePerms[k]; ok {
		return false, nil
	}
	m.rolePerms[k] = models.RolePermission{RoleID: roleID, PermissionID: permID, GrantedBy: by, GrantedAt: time.Now()}
	return true, nil
}

func (m *memStore) RevokeRolePermission(_ context.Context, roleID, permID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pair{roleID, permID}
	if _, ok := m.rolePerms[k]; !ok {
		return false, nil
	}
	delete(m.rolePerms, k)
	return true, nil
}

func (m *memStore) RolePermissions(_ context.Context, roleID uuid.UUID) ([]models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Permission
	for k := range m.rolePerms {
		if k[0] == roleID {
			out = append(out, *m.perms[k[1]])
		}
	}
	return out, nil
}

// permissions

func (m *memStore) CreatePermission(_ context.Context, p *models.Permission) (*models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.perms {
		if existing.Name == p.Name {
			return nil, ErrConflict
		}
	}
	cp := *p
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	m.perms[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetPermission(_ context.Context, id uuid.UUID) (*models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.perms[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetPermissionByName(_ context.Context, name string) (*models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.perms {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) ListPermissions(_ context.Context, f models.PermissionFilter) ([]models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Permission
	for _, p := range m.perms {
		if f.Module != "" && p.Module != f.Module {
			continue
		}
		if f.Action != "" && p.Action != f.Action {
			continue
		}
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) SetPermissionActive(_ context.Context, id uuid.UUID, active bool) (*models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.perms[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.IsActive = active
	cp := *p
	return &cp, nil
}

func (m *memStore) RoleLayerPermissions(_ context.Context, userID uuid.UUID) ([]models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Permission
	for ur := range m.userRoles {
		if ur[0] != userID {
			continue
		}
		for rp := range m.rolePerms {
			if rp[0] == ur[1] {
				out = append(out, *m.perms[rp[1]])
			}
		}
	}
	return out, nil
}

func (m *memStore) DirectPermissions(_ context.Context, userID uuid.UUID) ([]models.UserPermissionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserPermissionRow
	for k, up := range m.direct {
		if k[0] == userID {
			out = append(out, models.UserPermissionRow{UserPermission: up, Permission: *m.perms[k[1]]})
		}
	}
	return out, nil
}

func (m *memStore) GetDirectPermission(_ context.Context, userID, permID uuid.UUID) (*models.UserPermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	up, ok := m.direct[pair{userID, permID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &up, nil
}

func (m *memStore) UpsertDirectPermission(_ context.Context, up models.UserPermission) (*models.UserPermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	up.CreatedAt = time.Now()
	m.direct[pair{up.UserID, up.PermissionID}] = up
	return &up, nil
}

func (m *memStore) DeleteDirectPermission(_ context.Context, userID, permID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pair{userID, permID}
	if _, ok := m.direct[k]; !ok {
		return false, nil
	}
	delete(m.direct, k)
	return true, nil
}

// audit

func (m *memStore) InsertAudit(_ context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAudit != nil {
		return m.failAudit
	}
	m.audits = append(m.audits, *entry)
	return nil
}

func (m *memStore) ListAudit(_ context.Context, f models.AuditFilter) ([]models.AuditLog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditLog
	for i := len(m.audits) - 1; i >= 0; i-- {
		a := m.audits[i]
		if f.Action != "" && a.Action != f.Action {
			continue
		}
		if f.EntityType != "" && a.EntityType != f.EntityType {
			continue
		}
		if f.UserID != nil && (a.UserID == nil || *a.UserID != *f.UserID) {
			continue
		}
		out = append(out, a)
	}
	return page(out, f.Offset, f.Limit), len(out), nil
}

func (m *memStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.audits))
	for _, a := range m.audits {
		out = append(out, a.Action)
	}
	return out
}

func (m *memStore) countUserRoles(userID, roleID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.userRoles {
		if k == (pair{userID, roleID}) {
			n++
		}
	}
	return n
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// testEnv wires every service over one memStore.
type testEnv struct {
	cfg     *config.Config
	store   *memStore
	bus     *events.LocalBus
	logs    *observer.ObservedLogs
	audit   *AuditService
	auth    *AuthService
	rbac    *RBACService
	session *SessionService
	users   *UserService
	tokens  *auth.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:         "test-secret",
		JWTIssuer:         "aims",
		AccessTokenTTL:    time.Hour,
		RefreshTokenTTL:   24 * time.Hour,
		BcryptCost:        bcrypt.MinCost,
		AdminRoleName:     "super_admin",
		AuditWriteTimeout: time.Second,
	}
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	store := newMemStore()
	bus := events.NewLocalBus()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	audit := NewAuditService(store, bus, cfg.AuditWriteTimeout, log)
	rbacSvc := NewRBACService(store, store, store, audit, cfg, log)

	env := &testEnv{
		cfg:     cfg,
		store:   store,
		bus:     bus,
		logs:    logs,
		audit:   audit,
		auth:    NewAuthService(store, store, tokens, audit, rbacSvc, cfg, log),
		rbac:    rbacSvc,
		session: NewSessionService(store, rbacSvc, tokens, log),
		users:   NewUserService(store, audit, log),
		tokens:  tokens,
	}
	t.Cleanup(audit.Flush)
	return env
}

func (e *testEnv) register(t *testing.T, email string) *models.User {
	t.Helper()
	res, err := e.auth.Register(context.Background(), Registration{
		Email: email, Password: "Passw0rd!", FirstName: "Test", LastName: "User",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res.User
}

func (e *testEnv) role(t *testing.T, name string, system bool) *models.Role {
	t.Helper()
	r, err := e.store.CreateRole(context.Background(), &models.Role{Name: name, DisplayName: name, IsSystemRole: system})
	if err != nil {
		t.Fatalf("create role %s: %v", name, err)
	}
	return r
}

func (e *testEnv) permission(t *testing.T, module, action string) *models.Permission {
	t.Helper()
	p, err := e.store.CreatePermission(context.Background(), &models.Permission{
		Name: module + "." + action, Module: module, Action: action, IsActive: true,
	})
	if err != nil {
		t.Fatalf("create permission: %v", err)
	}
	return p
}
