package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evrental/evrental/internal/common/auth"
	"github.com/evrental/evrental/internal/common/config"
	"github.com/evrental/evrental/internal/common/errs"
	"github.com/evrental/evrental/internal/common/logger"
	"github.com/evrental/evrental/internal/docstore"
	"github.com/google/uuid"
)

// Service 封装用户/员工领域用例，同时充当引擎的身份提供方。
type Service struct {
	repo    *Repo
	audit   *AuditSink
	docs    docstore.Store
	authCfg config.AuthConfig
	log     logger.Logger
}

func NewService(repo *Repo, audit *AuditSink, docs docstore.Store, authCfg config.AuthConfig, log logger.Logger) *Service {
	return &Service{repo: repo, audit: audit, docs: docs, authCfg: authCfg, log: log}
}

// RegisterInput 注册入参。证件/驾照照片可选。
type RegisterInput struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	Password   string
	PersonalID []byte
	License    []byte
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.New(errs.KindInvalidInput, "name is required")
	}
	if in.Email == "" {
		return nil, errs.New(errs.KindInvalidInput, "email is required")
	}
	if in.Password == "" {
		return nil, errs.New(errs.KindInvalidInput, "password is required")
	}

	if existing, err := s.repo.FindByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, errs.New(errs.KindInvalidInput, "email already registered")
	} else if err != nil && !errors.Is(err, errs.NotFound) {
		return nil, err
	}

	salt, err := GenerateSaltHex()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password, salt)
	if err != nil {
		return nil, err
	}

	// 新注册账号先置 Suspended，待员工审核通过后转 Active。
	u := &User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		PasswordHash: hash,
		PasswordSalt: salt,
		Role:         RoleCustomer,
		Status:       StatusSuspended,
	}

	if len(in.PersonalID) > 0 && s.docs != nil {
		ref, err := s.docs.Save(ctx, "personal_id_"+u.ID, in.PersonalID)
		if err != nil {
			return nil, fmt.Errorf("save personal id: %w", err)
		}
		u.PersonalIDRef = ref
	}
	if len(in.License) > 0 && s.docs != nil {
		ref, err := s.docs.Save(ctx, "license_"+u.ID, in.License)
		if err != nil {
			return nil, fmt.Errorf("save license: %w", err)
		}
		u.LicenseRef = ref
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.audit.Record(ctx, u.ID, "Registered user "+u.ID)
	return u, nil
}

// LoginResult 登录结果。
type LoginResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			// 不区分“邮箱不存在”和“密码错误”
			return nil, errs.New(errs.KindUnauthorized, "invalid email or password")
		}
		return nil, err
	}
	if !VerifyPassword(password, u.PasswordSalt, u.PasswordHash) {
		return nil, errs.New(errs.KindUnauthorized, "invalid email or password")
	}
	if u.Status != StatusActive {
		return nil, errs.New(errs.KindUnauthorized, "user account is not active")
	}

	ttl := time.Duration(s.authCfg.TTLHours) * time.Hour
	token, expiresAt, err := auth.GenerateAccessToken(s.authCfg, u.ID, string(u.Role), u.StaffStationID(), ttl)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.audit.Record(ctx, u.ID, "User logged in")
	return &LoginResult{User: u.Sanitized(), Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// ResolveStaff 引擎调用：按 id 解析员工并校验角色。
func (s *Service) ResolveStaff(ctx context.Context, staffID string) (*User, error) {
	u, err := s.repo.FindByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleStaff && u.Role != RoleAdmin {
		return nil, errs.New(errs.KindUnauthorized, "user %s is not a staff member", staffID)
	}
	return u, nil
}

// StaffStation 员工的站点归属（Admin 返回空串，表示跨站身份）。
func (s *Service) StaffStation(ctx context.Context, staffID string) (string, error) {
	u, err := s.ResolveStaff(ctx, staffID)
	if err != nil {
		return "", err
	}
	if u.Role == RoleAdmin {
		return "", nil
	}
	return u.StaffStationID(), nil
}

// PrimaryStaffForStation 站点默认受理员工 id；无人可用返回空串。
func (s *Service) PrimaryStaffForStation(ctx context.Context, stationID string) (string, error) {
	u, err := s.repo.PrimaryStaffForStation(ctx, stationID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", nil
	}
	return u.ID, nil
}

// VerifyUser 员工审核：Suspended -> Active。
func (s *Service) VerifyUser(ctx context.Context, userID, staffID string) (*User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Status != StatusSuspended {
		return nil, errs.New(errs.KindInvalidState, "cannot verify user with status %s", u.Status)
	}
	u.Status = StatusActive
	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, staffID, "Verified user "+userID)
	return u, nil
}

// UpdateUserInput 用户资料更新（nil 表示不改）。
type UpdateUserInput struct {
	Name    *string
	Phone   *string
	Address *string
	Email   *string
}

func (s *Service) UpdateUser(ctx context.Context, userID string, in UpdateUserInput) (*User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		u.Address = strings.TrimSpace(*in.Address)
	}
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, userID, "Updated user "+userID)
	return u, nil
}

// UpdateUserStatus 管理端账号状态变更。
func (s *Service) UpdateUserStatus(ctx context.Context, actorID, userID, status, reason string) (*User, error) {
	parsed, err := ParseAccountStatus(status)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Status = parsed
	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}
	action := fmt.Sprintf("Updated user %s status to %s", userID, parsed)
	if reason != "" {
		action += " Reason: " + reason
	}
	s.audit.Record(ctx, actorID, action)
	return u, nil
}

// CreateStaffInput 创建员工入参。员工必须绑定站点。
type CreateStaffInput struct {
	Name      string
	Email     string
	Phone     string
	Password  string
	StationID string
}

func (s *Service) CreateStaff(ctx context.Context, actorID string, in CreateStaffInput) (*User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.New(errs.KindInvalidInput, "staff name is required")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" {
		return nil, errs.New(errs.KindInvalidInput, "staff email is required")
	}
	if strings.TrimSpace(in.StationID) == "" {
		return nil, errs.New(errs.KindInvalidInput, "station assignment is required for staff")
	}
	if in.Password == "" {
		return nil, errs.New(errs.KindInvalidInput, "staff password is required")
	}

	salt, err := GenerateSaltHex()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password, salt)
	if err != nil {
		return nil, err
	}

	stationID := strings.TrimSpace(in.StationID)
	u := &User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		PasswordSalt: salt,
		Role:         RoleStaff,
		Status:       StatusActive,
		StationID:    &stationID,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create staff: %w", err)
	}
	s.audit.Record(ctx, actorID, "Created staff "+u.ID)
	return u, nil
}

func (s *Service) GetStaff(ctx context.Context, stationID string) ([]User, error) {
	return s.repo.ListStaffByStation(ctx, stationID)
}

// UpdateStaffInput 员工资料更新（nil 表示不改）。
type UpdateStaffInput struct {
	Name      *string
	Phone     *string
	Email     *string
	StationID *string
}

func (s *Service) UpdateStaff(ctx context.Context, actorID, staffID string, in UpdateStaffInput) (*User, error) {
	u, err := s.repo.FindByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleStaff {
		return nil, errs.New(errs.KindInvalidInput, "user %s is not a staff member", staffID)
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.StationID != nil {
		stationID := strings.TrimSpace(*in.StationID)
		if stationID == "" {
			return nil, errs.New(errs.KindInvalidInput, "staff station must not be empty")
		}
		u.StationID = &stationID
	}
	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actorID, "Updated staff "+staffID)
	return u, nil
}

// DeleteStaff 软删除：状态置 Deleted，保留审计关联。
func (s *Service) DeleteStaff(ctx context.Context, actorID, staffID string) error {
	u, err := s.repo.FindByID(ctx, staffID)
	if err != nil {
		return err
	}
	if u.Role != RoleStaff {
		return errs.New(errs.KindInvalidInput, "user %s is not a staff member", staffID)
	}
	u.Status = StatusDeleted
	if err := s.repo.Save(ctx, u); err != nil {
		return err
	}
	s.audit.Record(ctx, actorID, "Deleted staff "+staffID)
	return nil
}

// ListUsers 管理端用户列表。
func (s *Service) ListUsers(ctx context.Context, role Role, status AccountStatus, offset, limit int) ([]User, int64, error) {
	users, total, err := s.repo.List(ctx, role, status, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, total, nil
}
