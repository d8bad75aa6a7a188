package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kmit-fdms/fdms/internal/models"
	"github.com/kmit-fdms/fdms/internal/utils"
)

func newAccountSvc(repo *fakeAccountRepo, mode utils.PasswordMode, secret string) AccountService {
	return NewAccountService(AccountDeps{
		Accounts:     repo,
		PasswordMode: mode,
		JWTSecret:    secret,
		Now:          func() time.Time { return fixedNow },
	})
}

func signup(email string) SignupInput {
	return SignupInput{Name: "Lakshmi", Phone: "999", Email: email, Password: "pw123", Role: "HoD", Department: "cse"}
}

func TestSignupAndDuplicate(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountSvc(repo, utils.PasswordPlain, "")

	res, err := svc.Signup(context.Background(), signup("l@kmit.in"))
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if !res.Success || res.Message != "Signup successful!" {
		t.Errorf("res = %+v", res)
	}
	stored := repo.byEmail["l@kmit.in"]
	if stored.Role != models.RoleHOD || stored.Department != "CSE" {
		t.Errorf("stored = %+v", stored)
	}
	if stored.Password != "pw123" {
		t.Errorf("plain mode should store the password as given")
	}

	res, err = svc.Signup(context.Background(), signup("l@kmit.in"))
	if err != nil {
		t.Fatalf("duplicate Signup returned error: %v", err)
	}
	if res.Success || res.Message != "User already exists!" {
		t.Errorf("duplicate res = %+v", res)
	}
}

func TestSignupValidation(t *testing.T) {
	svc := newAccountSvc(newFakeAccountRepo(), utils.PasswordPlain, "")

	tests := map[string]func(in *SignupInput){
		"no email":  func(in *SignupInput) { in.Email = "" },
		"no role":   func(in *SignupInput) { in.Role = "" },
		"bad role":  func(in *SignupInput) { in.Role = "Dean" },
		"bad dept":  func(in *SignupInput) { in.Department = "MECH" },
		"no passwd": func(in *SignupInput) { in.Password = "" },
	}
	for name, mutate := range tests {
		in := signup("x@kmit.in")
		mutate(&in)
		if _, err := svc.Signup(context.Background(), in); !utils.IsCode(err, utils.CodeInvalidArgument) {
			t.Errorf("%s: err = %v, want INVALID_ARGUMENT", name, err)
		}
	}
}

func TestLoginPlain(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountSvc(repo, utils.PasswordPlain, "")
	if _, err := svc.Signup(context.Background(), signup("l@kmit.in")); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Login(context.Background(), LoginInput{Email: "l@kmit.in", Password: "pw123", UserAgent: "test", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.Success || res.Message != "Login successful as HOD" || res.Role != "HOD" || res.Name != "Lakshmi" {
		t.Errorf("res = %+v", res)
	}
	if res.Token != "" {
		t.Error("no token expected without a secret")
	}
	acc := repo.byEmail["l@kmit.in"]
	if acc.LoginCount != 1 || acc.LastLogin == nil || acc.LoginHistory[0].IP != "10.0.0.1" {
		t.Errorf("login not recorded: %+v", acc)
	}

	for _, in := range []LoginInput{
		{Email: "l@kmit.in", Password: "wrong"},
		{Email: "nobody@kmit.in", Password: "pw123"},
	} {
		res, err := svc.Login(context.Background(), in)
		if err != nil {
			t.Fatalf("Login(%s): %v", in.Email, err)
		}
		if res.Success || res.Message != "Invalid credentials" {
			t.Errorf("Login(%s) = %+v", in.Email, res)
		}
	}
	if acc.LoginCount != 1 {
		t.Errorf("failed logins should not be recorded, count = %d", acc.LoginCount)
	}
}

func TestLoginBcryptIssuesToken(t *testing.T) {
	repo := newFakeAccountRepo()
	// real clock so the token is still valid when parsed
	svc := NewAccountService(AccountDeps{Accounts: repo, PasswordMode: utils.PasswordBcrypt, JWTSecret: "secret"})
	if _, err := svc.Signup(context.Background(), signup("l@kmit.in")); err != nil {
		t.Fatal(err)
	}
	if repo.byEmail["l@kmit.in"].Password == "pw123" {
		t.Fatal("bcrypt mode stored the plaintext")
	}

	res, err := svc.Login(context.Background(), LoginInput{Email: "l@kmit.in", Password: "pw123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.Success || res.Token == "" {
		t.Fatalf("res = %+v", res)
	}
	claims, err := utils.ParseToken("secret", res.Token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Role != "HOD" || claims.Email != "l@kmit.in" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLoginRepoFailure(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.getErr = errors.New("mongo down")
	svc := newAccountSvc(repo, utils.PasswordPlain, "")

	if _, err := svc.Login(context.Background(), LoginInput{Email: "a@b.c", Password: "x"}); !utils.IsCode(err, utils.CodeInternal) {
		t.Errorf("err = %v, want INTERNAL", err)
	}
}

func TestListAccountsHidesPasswords(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountSvc(repo, utils.PasswordPlain, "")
	if _, err := svc.Signup(context.Background(), signup("l@kmit.in")); err != nil {
		t.Fatal(err)
	}

	out, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 || out[0].Password != "" {
		t.Errorf("accounts = %+v", out)
	}
}
