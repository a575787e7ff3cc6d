package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AaronLay10/EpisodeEngine/internal/api"
	"github.com/AaronLay10/EpisodeEngine/internal/config"
	"github.com/AaronLay10/EpisodeEngine/internal/episode"
	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/motion"
	"github.com/AaronLay10/EpisodeEngine/internal/mqtt"
	"github.com/AaronLay10/EpisodeEngine/internal/sampler"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
	"github.com/AaronLay10/EpisodeEngine/internal/storage/postgres"
	"github.com/AaronLay10/EpisodeEngine/internal/tasks"
	"github.com/AaronLay10/EpisodeEngine/internal/version"
)

// seedStream decorrelates the second PCG word from the configured seed.
const seedStream = 0x9e3779b97f4a7c15

type options struct {
	configPath string
	task       string
	episodes   int
	start      int
	list       bool
	history    string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "engine.yaml", "path to engine.yaml")
	flag.StringVar(&o.task, "task", "", "task to run (overrides run.task)")
	flag.IntVar(&o.episodes, "episodes", 0, "episodes to run (overrides run.episodes)")
	flag.IntVar(&o.start, "start", -1, "first variation index (overrides run.start_index)")
	flag.BoolVar(&o.list, "list", false, "list tasks with their variation counts and exit")
	flag.StringVar(&o.history, "history", "", "print the stored events of an episode id and exit")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()

	if o.list {
		listTasks()
		return
	}

	cfg, err := config.LoadEngineConfig(o.configPath)
	if err != nil {
		log.Fatalf("failed to load %s: %v", o.configPath, err)
	}
	if o.task != "" {
		cfg.Run.Task = o.task
	}
	if o.episodes > 0 {
		cfg.Run.Episodes = o.episodes
	}
	if o.start >= 0 {
		cfg.Run.StartIndex = o.start
	}

	openStore := cfg.Storage.Enabled || o.history != ""
	creds, err := config.ResolveCredentials(cfg, openStore)
	if err != nil {
		log.Fatalf("failed to resolve credentials: %v", err)
	}

	var store *postgres.Client
	if openStore {
		store, err = postgres.New(cfg.BenchID(), creds.PostgresPassword)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer store.Close()
	}

	if o.history != "" {
		if err := printHistory(store, o.history); err != nil {
			log.Fatalf("history: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, creds, store); err != nil {
		log.Fatalf("%v", err)
	}
}

func listTasks() {
	for _, name := range tasks.Names() {
		t, _ := tasks.Lookup(name)
		fmt.Printf("%-20s %d variations\n", name, t.Layout().Count())
	}
}

func printHistory(store *postgres.Client, episodeID string) error {
	rows, err := store.QueryEpisode(episodeID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no events stored for episode %s", episodeID)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	outcomes := episode.Summarize(rows)
	if len(outcomes) == 1 {
		log.Printf("episode %s: %s variation %d %s", episodeID, outcomes[0].Task, outcomes[0].Variation, outcomes[0].Status)
	}
	return nil
}

func run(ctx context.Context, cfg *config.EngineConfig, creds config.Credentials, store *postgres.Client) error {
	task, err := tasks.Lookup(cfg.Run.Task)
	if err != nil {
		return fmt.Errorf("%w (known: %s)", err, strings.Join(tasks.Names(), ", "))
	}

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "episode engine starting", map[string]interface{}{
		"service":  "episodes",
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
		"task":     task.Name(),
	})

	if store != nil {
		events.SetStore(store)
		defer events.SetStore(nil)
		outcomes, rows, err := episode.ReplayFromStore(store, episode.DefaultReplayLimit)
		if err != nil {
			log.Printf("replay failed: %v", err)
		} else if rows > 0 {
			episode.EmitReplaySummary(outcomes, rows)
		}
	}

	mirror := scene.NewMemory()
	cfg.Apply(mirror)
	tasks.Seed(mirror, task)

	var sc scene.Scene = mirror
	if cfg.MQTT.Enabled {
		bridge, disconnect := startBridge(ctx, cfg, creds, mirror)
		defer disconnect()
		sc = bridge
	}

	if cfg.API.Listen != "" {
		api.Start(ctx, cfg.API.Listen, api.NewStats(task.Name()))
	}

	seed := cfg.Engine.Seed
	rng := rand.New(rand.NewPCG(seed, seed^seedStream))
	env := episode.NewEnv(sc, rng, sampler.WithRetryCeiling(cfg.RetryCeiling()))
	for _, r := range cfg.Regions() {
		if err := env.Sampler.AddRegion(r); err != nil {
			return err
		}
	}

	ctrl := episode.NewController(task, env)
	if err := ctrl.InitTask(); err != nil {
		return err
	}
	log.Printf("sampler: regions [%s], retry ceiling %d", strings.Join(env.Sampler.Regions(), ", "), env.Sampler.RetryCeiling())

	succeeded, failed := runEpisodes(ctx, cfg, ctrl)

	log.Printf("%s: %d succeeded, %d failed of %d", task.Name(), succeeded, failed, cfg.Episodes())
	events.Emit("info", "system.shutdown", "", map[string]interface{}{
		"task":      task.Name(),
		"succeeded": succeeded,
		"failed":    failed,
	})
	events.CloseAllSubscribers()
	return nil
}

func startBridge(ctx context.Context, cfg *config.EngineConfig, creds config.Credentials, mirror *scene.Memory) (*mqtt.SceneBridge, func()) {
	var states *mqtt.StateSubscriber
	client := mqtt.NewClient(mqtt.Options{
		BrokerURL: creds.MQTTURL,
		ClientID:  cfg.MQTT.ClientID,
		Username:  creds.MQTTUsername,
		Password:  creds.MQTTPassword,
		OnConnect: func() {
			states.ClearSubscriptions()
			if err := states.Subscribe(); err != nil {
				log.Printf("mqtt: failed to subscribe to %s: %v", states.Topic(), err)
			}
		},
	})
	states = mqtt.NewStateSubscriber(client, mirror, cfg.MQTTPrefix())
	bridge := mqtt.NewSceneBridge(mirror, client, cfg.MQTTPrefix())

	client.Start()
	go bridge.Run(ctx)
	go bridge.ForwardEvents(ctx)
	return bridge, client.Disconnect
}

// runEpisodes runs the configured episodes in index order, wrapping around
// the variation count. Configuration failures are counted and skipped.
func runEpisodes(ctx context.Context, cfg *config.EngineConfig, ctrl *episode.Controller) (succeeded, failed int) {
	count := ctrl.VariationCount()
	opts := motion.Options{
		StepsPerWaypoint: cfg.StepsPerWaypoint(),
		MaxTicks:         cfg.MaxTicks(),
	}

	for i := 0; i < cfg.Episodes(); i++ {
		if ctx.Err() != nil {
			break
		}
		index := (cfg.Run.StartIndex + i) % count

		descriptions, err := ctrl.InitEpisode(index)
		if err != nil {
			log.Printf("episode %d: %v", index, err)
			failed++
			continue
		}
		log.Printf("episode %s variation %d: %s", ctrl.EpisodeID(), index, descriptions[0])

		res, err := ctrl.Executor(opts).Run(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			log.Printf("episode %s interrupted", ctrl.EpisodeID())
		case err != nil:
			log.Printf("episode %s: %v", ctrl.EpisodeID(), err)
			failed++
		case res.Success:
			succeeded++
		default:
			failed++
		}
		log.Printf("episode %s: success=%t ticks=%d steps=%d iterations=%d", ctrl.EpisodeID(), res.Success, res.Ticks, res.Steps, res.Iterations)
		ctrl.Cleanup()
	}
	return succeeded, failed
}
