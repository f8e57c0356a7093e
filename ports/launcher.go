package ports

import "context"

// LinkLauncher hands a URI to the operating system's external-app handler.
type LinkLauncher interface {
	// CanOpen reports whether the OS has a handler for the URI.
	CanOpen(ctx context.Context, uri string) bool

	// Open launches the external application. Control passes to that app;
	// whether the user completes anything there is unknowable here.
	Open(ctx context.Context, uri string) error
}
