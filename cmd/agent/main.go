// The agent captures accident reports in the field, queues them durably on
// disk, and replays them to the API server whenever connectivity allows. It
// is the offline half of the system: enqueue never needs the network.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/harshach55/AssistQR/queue"
)

func main() {
	_ = godotenv.Load()

	logger := zap.NewExample()
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "enqueue":
		err = cmdEnqueue(os.Args[2:])
	case "sync":
		err = cmdSync(os.Args[2:])
	case "run":
		err = cmdRun(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  agent enqueue -token <qrToken> [-lat L -lng L] [-location TEXT] [-note TEXT] [-image FILE]...
  agent sync
  agent run [-every DURATION]

common flags: -db PATH (default $AGENT_DB or agent-queue.db), -server URL (default $BASE_URL)`)
}

// stringList collects repeated -image flags
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func defaultDBPath() string {
	if p := os.Getenv("AGENT_DB"); p != "" {
		return p
	}
	return "agent-queue.db"
}

func defaultServer() string {
	return os.Getenv("BASE_URL")
}

func cmdEnqueue(args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBPath(), "path to the local queue database")
	token := fs.String("token", "", "vehicle QR token from the sticker")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	hasCoords := fs.Bool("coords", false, "set when -lat/-lng carry a real fix")
	location := fs.String("location", "", "manual location description")
	note := fs.String("note", "", "helper note")
	var images stringList
	fs.Var(&images, "image", "image file to attach (repeatable)")
	fs.Parse(args)

	if *token == "" {
		return fmt.Errorf("-token is required")
	}

	store, err := queue.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	report := queue.QueuedReport{
		QRToken:        *token,
		ManualLocation: *location,
		HelperNote:     *note,
	}
	if *hasCoords {
		report.Latitude = lat
		report.Longitude = lng
	}

	id, err := store.Enqueue(report)
	if err != nil {
		return err
	}
	for _, path := range images {
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		mimeType := mimeForFile(path)
		if _, err := store.AttachImage(id, body, filepath.Base(path), mimeType); err != nil {
			return fmt.Errorf("failed to attach %s: %w", path, err)
		}
	}

	fmt.Printf("queued report %s with %d image(s)\n", id, len(images))
	return nil
}

func cmdSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBPath(), "path to the local queue database")
	server := fs.String("server", defaultServer(), "API server base URL")
	fs.Parse(args)

	if *server == "" {
		return fmt.Errorf("-server or BASE_URL is required")
	}

	store, err := queue.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := queue.NewEngine(store, queue.NewHTTPSubmitter(*server), queue.OnlineProbe(*server), queue.Options{
		// a manual sync should not be swallowed by the cooldown window
		Cooldown: 1,
	})
	synced, err := engine.RunCycle(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("synced %d report(s)\n", synced)
	return nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBPath(), "path to the local queue database")
	server := fs.String("server", defaultServer(), "API server base URL")
	every := fs.String("every", "@every 1m", "cron spec for periodic sync attempts")
	fs.Parse(args)

	if *server == "" {
		return fmt.Errorf("-server or BASE_URL is required")
	}

	store, err := queue.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := queue.NewEngine(store, queue.NewHTTPSubmitter(*server), queue.OnlineProbe(*server), queue.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := cron.New()
	if _, err := c.AddFunc(*every, engine.TriggerSync); err != nil {
		return fmt.Errorf("bad -every spec: %w", err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	// drain anything already queued before the first tick
	engine.TriggerSync()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		zap.S().Info("agent shutting down")
		cancel()
	}()

	zap.S().Infow("agent running", "db", *dbPath, "server", *server, "every", *every)
	engine.Run(ctx)
	return nil
}

// mimeForFile guesses the MIME type from the file extension; the queue
// rejects anything that is not image/*
func mimeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
