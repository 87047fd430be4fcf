package backend

import (
	"context"
	"os"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/auth"
	"github.com/dmitrijs2005/gophadmin/internal/server/config"
	"github.com/dmitrijs2005/gophadmin/internal/server/push"
	"google.golang.org/api/option"
)

// firebaseApp is the part of *firebase.App the bootstrap uses.
type firebaseApp interface {
	Auth(ctx context.Context) (*fbauth.Client, error)
	Messaging(ctx context.Context) (*messaging.Client, error)
}

var newFirebaseApp = func(ctx context.Context, cfg *firebase.Config, opts ...option.ClientOption) (firebaseApp, error) {
	return firebase.NewApp(ctx, cfg, opts...)
}

// envAuthEmulator is read by the auth client to redirect to the emulator.
const envAuthEmulator = "FIREBASE_AUTH_EMULATOR_HOST"

// applyEmulators points the auth client at its emulator. The document-store
// and storage emulators have no client in this process (objects go to S3),
// so their addresses are only reported.
func applyEmulators(ctx context.Context, e config.EmulatorConfig, logger logging.Logger) error {
	if e.Firestore.Set() || e.Storage.Set() {
		logger.Warn(ctx, "document-store and storage emulators are not used by the server",
			"firestore", e.Firestore.String(), "storage", e.Storage.String())
	}
	if !e.Auth.Set() {
		return nil
	}
	return os.Setenv(envAuthEmulator, e.Auth.String())
}

func clientOptions(cfg *config.Config) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case cfg.Firebase.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	case cfg.Emulators.Enabled():
		opts = append(opts, option.WithoutAuthentication())
	}
	return opts
}

func connectFirebase(ctx context.Context, c *connection, cfg *config.Config, logger logging.Logger) error {
	if err := applyEmulators(ctx, cfg.Emulators, logger); err != nil {
		return err
	}

	app, err := newFirebaseApp(ctx, &firebase.Config{
		ProjectID:     cfg.Firebase.ProjectID,
		StorageBucket: cfg.Firebase.StorageBucket,
	}, clientOptions(cfg)...)
	if err != nil {
		return err
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return err
	}
	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return err
	}

	// locally issued tokens from /auth/login stay valid next to provider ID tokens
	c.verifier = auth.ChainVerifier{auth.NewJWTVerifier(cfg.SecretKey), auth.NewFirebaseVerifier(authClient)}
	c.dispatcher = push.NewFCMDispatcher(msgClient, cfg.AppURL, logger)
	return nil
}
