package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/mousetrap/internal/client/client"
)

var (
	errNotLoggedIn = errors.New("not logged in")
	errAdminOnly   = errors.New("administrator only")
	errNotForAdmin = errors.New("the administrator has no motion profile")
	errLearning    = errors.New("learning in progress")
)

// requireUser checks that a regular user is logged in.
func (a *App) requireUser() error {
	switch {
	case !a.isLoggedIn():
		printlnFn("Please log in first.")
		return errNotLoggedIn
	case a.isAdmin():
		printlnFn("The administrator has no motion profile.")
		return errNotForAdmin
	}
	return nil
}

func (a *App) requireAdmin() error {
	if !a.isAdmin() {
		printlnFn("Administrator only.")
		return errAdminOnly
	}
	return nil
}

// Learn starts uploading motion samples in the background.
func (a *App) Learn(ctx context.Context) error {
	if err := a.requireUser(); err != nil {
		return err
	}
	if err := a.learner.Start(ctx); err != nil {
		printlnFn("Learning already running.")
		return err
	}
	printlnFn("Learning started. Use the mouse as usual; type 'stoplearn' to stop.")
	return nil
}

// StopLearn stops the background upload.
func (a *App) StopLearn(ctx context.Context) error {
	if !a.learner.Running() {
		printlnFn("Learning is not running.")
		return nil
	}
	a.learner.Stop()
	printlnFn("Learning stopped,", a.learner.Uploaded(), "samples uploaded.")
	return nil
}

// Defend downloads the trained model and starts monitoring.
func (a *App) Defend(ctx context.Context) error {
	if err := a.requireUser(); err != nil {
		return err
	}
	if a.learner.Running() {
		printlnFn("Stop learning first.")
		return errLearning
	}
	if err := a.ensureConnected(ctx); err != nil {
		printlnFn("Server unavailable:", err)
		return err
	}
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	d, err := a.api.FetchDefense(ctx)
	if err != nil {
		if errors.Is(err, client.ErrNoModel) {
			printlnFn("No trained model yet, keep learning.")
		} else {
			printlnFn("Fetching the model failed:", err)
		}
		return err
	}

	if err := a.guard.Arm(d.Network, d.Limit, d.Email); err != nil {
		printlnFn("Cannot arm:", err)
		return err
	}
	if err := a.guard.Start(ctx); err != nil {
		printlnFn("Cannot start monitoring:", err)
		return err
	}
	printlnFn("Monitoring started.")
	return nil
}

// Stop ends monitoring.
func (a *App) Stop(ctx context.Context) error {
	a.guard.Stop()
	printlnFn("Monitoring stopped.")
	return nil
}

// Users lists all accounts.
func (a *App) Users(ctx context.Context) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	if err := a.ensureConnected(ctx); err != nil {
		printlnFn("Server unavailable:", err)
		return err
	}
	names, err := a.api.ListUsers(ctx)
	if err != nil {
		printlnFn("Listing users failed:", err)
		return err
	}
	printlnFn(strings.Join(names, "\n"))
	return nil
}

// DeleteUser removes an account, prompting for the name when it is empty.
func (a *App) DeleteUser(ctx context.Context, userName string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	if userName == "" {
		var err error
		userName, err = getSimpleText(a.reader, "Enter user name to delete", a.out)
		if err != nil {
			return err
		}
	}
	if err := a.ensureConnected(ctx); err != nil {
		printlnFn("Server unavailable:", err)
		return err
	}
	if err := a.api.DeleteUser(ctx, userName); err != nil {
		printlnFn("Delete failed:", err)
		return err
	}
	printlnFn("Deleted", userName)
	return nil
}
