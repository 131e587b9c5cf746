package cli

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/quiz-ledger/internal/ledger"
	"github.com/nhle/quiz-ledger/internal/logger"
	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/notify"
	"github.com/nhle/quiz-ledger/internal/reltime"
	"github.com/nhle/quiz-ledger/internal/session"
	"github.com/nhle/quiz-ledger/internal/store"
)

// Env holds the services a command runs against.
type Env struct {
	Config  *model.AppConfig
	Logger  *zap.Logger
	Store   store.Store
	Ledger  *ledger.Ledger
	Service *notify.Service

	session *session.Session
	closers []func() error
}

// NewEnv wires a ledger, tracker and notification service over s.
func NewEnv(cfg *model.AppConfig, s store.Store, logger *zap.Logger, sess *session.Session, opts ...ledger.Option) *Env {
	l := ledger.New(s, logger, opts...)
	return &Env{
		Config:  cfg,
		Logger:  logger,
		Store:   s,
		Ledger:  l,
		Service: notify.NewService(l, notify.NewTracker(s, logger), reltime.New(cfg.Display.Locale), logger),
		session: sess,
	}
}

// OpenEnv loads configuration from path and opens the configured store.
func OpenEnv(path string) (*Env, error) {
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "creating logger", err)
	}

	s, err := store.Open(cfg.Store)
	if err != nil {
		_ = log.Sync()
		return nil, WrapExitError(ExitCommandError, "opening store", err)
	}

	env := NewEnv(cfg, s, log, nil)
	env.closers = append(env.closers, s.Close, func() error {
		_ = log.Sync()
		return nil
	})
	return env, nil
}

// Session opens the keyring on first use, so commands given --user never
// touch it.
func (e *Env) Session() (*session.Session, error) {
	if e.session != nil {
		return e.session, nil
	}
	ring, err := session.Open(e.Config.Session)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening keyring", err)
	}
	e.session = session.New(ring)
	return e.session, nil
}

// Close releases the store and flushes the logger.
func (e *Env) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// resolveUser returns the --user override or the signed-in user.
func resolveUser(e *Env, override string) (model.User, error) {
	if override != "" {
		return model.User{Email: override, Role: model.RoleStudent}, nil
	}

	sess, err := e.Session()
	if err != nil {
		return model.User{}, err
	}
	u, err := sess.Current()
	if session.IsMissingIdentity(err) {
		return model.User{}, NewExitError(ExitCommandError, "not signed in: run `quizledger login` or pass --user")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("reading session: %w", err)
	}
	return u, nil
}
