package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/taskhub-io/taskhub/internal/app/services/directory"
	"github.com/taskhub-io/taskhub/internal/app/services/messages"
	"github.com/taskhub-io/taskhub/internal/app/services/notify"
	postssvc "github.com/taskhub-io/taskhub/internal/app/services/posts"
	"github.com/taskhub-io/taskhub/internal/app/services/sweeper"
	"github.com/taskhub-io/taskhub/internal/app/services/workflow"
	"github.com/taskhub-io/taskhub/internal/app/storage"
	"github.com/taskhub-io/taskhub/internal/app/storage/memory"
	"github.com/taskhub-io/taskhub/internal/app/system"
	"github.com/taskhub-io/taskhub/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users    storage.UserStore
	Posts    storage.PostStore
	Messages storage.MessageStore
}

// Options carries runtime settings for the optional components. Callers fill
// it from internal/config; zero values leave the announcer unset and the
// overdue scanner on its default schedule.
type Options struct {
	AnnounceURL     string
	AnnounceKey     string
	AnnounceTimeout time.Duration
	SweepSchedule   string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Directory *directory.Service
	Posts     *postssvc.Service
	Workflow  *workflow.Service
	Messages  *messages.Service
	Announcer notify.Announcer
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Posts == nil {
		stores.Posts = mem
	}
	if stores.Messages == nil {
		stores.Messages = mem
	}

	manager := system.NewManager()

	directoryService := directory.New(stores.Users, log)
	postService := postssvc.New(stores.Users, stores.Posts, log)
	workflowService := workflow.New(stores.Users, stores.Posts, log)
	messageService := messages.New(stores.Users, stores.Messages, log)

	for _, name := range []string{"directory", "posts", "workflow", "messages"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	var announcer notify.Announcer
	if endpoint := strings.TrimSpace(opts.AnnounceURL); endpoint != "" {
		timeout := opts.AnnounceTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient := &http.Client{Timeout: timeout}
		configured, err := notify.NewHTTPAnnouncer(httpClient, endpoint, opts.AnnounceKey, log)
		if err != nil {
			return nil, fmt.Errorf("configure announcement gateway: %w", err)
		}
		announcer = configured
	} else {
		log.Warn("announcement endpoint not configured; post announcements disabled")
	}

	scanner, err := sweeper.NewScanner(stores.Posts, opts.SweepSchedule, log)
	if err != nil {
		return nil, fmt.Errorf("configure overdue scanner: %w", err)
	}
	if err := manager.Register(scanner); err != nil {
		return nil, fmt.Errorf("register %s: %w", scanner.Name(), err)
	}

	return &Application{
		manager:   manager,
		log:       log,
		Directory: directoryService,
		Posts:     postService,
		Workflow:  workflowService,
		Messages:  messageService,
		Announcer: announcer,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
