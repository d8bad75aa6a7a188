package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kmit-fdms/fdms/internal/models"
	mongorepo "github.com/kmit-fdms/fdms/internal/repositories/mongo"
	"github.com/kmit-fdms/fdms/internal/utils"
)

const (
	msgSignupOK       = "Signup successful!"
	msgUserExists     = "User already exists!"
	msgBadCredentials = "Invalid credentials"
)

type SignupInput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

type LoginInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IP        string `json:"-"`
}

// AuthResult is the user-facing outcome of signup and login. A rejected login
// or duplicate signup is a result, not an error.
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Role    string `json:"role,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Token   string `json:"token,omitempty"`
}

type AccountService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	List(ctx context.Context) ([]models.Account, error)
}

type AccountDeps struct {
	Accounts     mongorepo.AccountRepository
	PasswordMode utils.PasswordMode
	JWTSecret    string // empty disables tokens
	TokenTTL     time.Duration
	Now          func() time.Time
}

type accountService struct {
	accounts mongorepo.AccountRepository
	mode     utils.PasswordMode
	secret   string
	ttl      time.Duration
	now      func() time.Time
}

func NewAccountService(d AccountDeps) AccountService {
	s := &accountService{
		accounts: d.Accounts,
		mode:     d.PasswordMode,
		secret:   d.JWTSecret,
		ttl:      d.TokenTTL,
		now:      d.Now,
	}
	if s.mode == "" {
		s.mode = utils.PasswordPlain
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *accountService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	const op = "AccountService.Signup"

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" || strings.TrimSpace(in.Role) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "name, email, password and role are required", nil)
	}
	role, ok := models.ParseRole(in.Role)
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "role must be Faculty, HOD or Admin", nil)
	}
	dept := ""
	if strings.TrimSpace(in.Department) != "" {
		d, ok := models.ParseDepartment(in.Department)
		if !ok {
			return nil, utils.E(utils.CodeInvalidArgument, op, "department must be CSE, DS, AIML or IT", nil)
		}
		dept = d
	}

	stored, err := s.mode.StorePassword(in.Password)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}

	acc := &models.Account{
		Name:       in.Name,
		Phone:      strings.TrimSpace(in.Phone),
		Email:      in.Email,
		Password:   stored,
		Role:       role,
		Department: dept,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.accounts.Insert(ctx, acc); err != nil {
		if errors.Is(err, utils.ErrDuplicate) {
			return &AuthResult{Success: false, Message: msgUserExists}, nil
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create account", err)
	}
	return &AuthResult{Success: true, Message: msgSignupOK}, nil
}

func (s *accountService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	const op = "AccountService.Login"

	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "email and password are required", nil)
	}

	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return &AuthResult{Success: false, Message: msgBadCredentials}, nil
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to look up account", err)
	}
	if !s.mode.Matches(acc.Password, in.Password) {
		return &AuthResult{Success: false, Message: msgBadCredentials}, nil
	}

	now := s.now().UTC()
	if err := s.accounts.RecordLogin(ctx, acc.ID, models.LoginEvent{
		Timestamp: now,
		UserAgent: in.UserAgent,
		IP:        in.IP,
	}); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to record login", err)
	}

	res := &AuthResult{
		Success: true,
		Message: "Login successful as " + string(acc.Role),
		Role:    string(acc.Role),
		Name:    acc.Name,
		Email:   acc.Email,
	}
	if s.secret != "" {
		tok, err := utils.IssueToken(s.secret, acc.ID.Hex(), string(acc.Role), acc.Email, s.ttl, now)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to issue token", err)
		}
		res.Token = tok
	}
	return res, nil
}

func (s *accountService) List(ctx context.Context) ([]models.Account, error) {
	const op = "AccountService.List"

	out, err := s.accounts.List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list accounts", err)
	}
	for i := range out {
		out[i].Password = ""
		out[i].LoginHistory = nil
	}
	return out, nil
}
