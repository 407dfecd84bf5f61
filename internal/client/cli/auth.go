package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/mousetrap/internal/client/client"
	"github.com/dmitrijs2005/mousetrap/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) readPassword() (string, error) {
	pw, err := getPassword(a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// Register prompts for a user name, password and email and creates the
// account. It does not log in.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}
	password, err := a.readPassword()
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	if err := a.ensureConnected(ctx); err != nil {
		printlnFn("Server unavailable:", err)
		return err
	}
	if err := a.api.Register(ctx, userName, password, email); err != nil {
		if errors.Is(err, client.ErrRejected) {
			printlnFn("Registration rejected, the user name may be taken.")
		} else {
			printlnFn("Registration failed:", err)
		}
		return err
	}

	printlnFn("Registered. You can log in now.")
	return nil
}

// Login prompts for credentials and authenticates the session.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}
	password, err := a.readPassword()
	if err != nil {
		return err
	}

	if err := a.ensureConnected(ctx); err != nil {
		printlnFn("Server unavailable:", err)
		return err
	}
	role, err := a.api.Login(ctx, userName, password)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			printlnFn("Login failed: wrong user name or password.")
		} else {
			printlnFn("Login failed:", err)
		}
		return err
	}

	a.userName, a.role = userName, role
	if role == client.RoleAdmin {
		printlnFn("Logged in as administrator.")
	} else {
		printlnFn("Logged in.")
	}
	return nil
}
