package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/philippgille/chromem-go"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ashton-krac/carbonchat"
	"github.com/ashton-krac/carbonchat/corpus"
	"github.com/ashton-krac/carbonchat/llm/openai"
	"github.com/ashton-krac/carbonchat/vector"

	chromemP "github.com/ashton-krac/carbonchat/persistence/chromem"
	httpT "github.com/ashton-krac/carbonchat/transport/http"
	natsT "github.com/ashton-krac/carbonchat/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "carbonchat",
		Usage: "IBM Carbon Design System documentation chatbot",
		Commands: []*cli.Command{
			{
				Name:  "crawl",
				Usage: "Crawl the documentation site into a JSON corpus",
				Flags: append(baseFlags(),
					&cli.StringFlag{
						Name:  "base-url",
						Usage: "Documentation site to crawl",
						Value: "https://carbondesignsystem.com/",
					},
					&cli.IntFlag{
						Name:  "max-depth",
						Usage: "Maximum crawl depth (0 = unlimited)",
					},
				),
				Action: runCrawl,
			},
			{
				Name:   "stats",
				Usage:  "Report statistics about the corpus",
				Flags:  baseFlags(),
				Action: runStats,
			},
			{
				Name:  "index",
				Usage: "Embed the corpus into the vector store",
				Flags: append(baseFlags(),
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Drop the existing collection before indexing",
					},
				),
				Action: runIndex,
			},
			{
				Name:   "chat",
				Usage:  "Interactive question loop against the indexed documentation",
				Flags:  baseFlags(),
				Action: runChat,
			},
			{
				Name:  "serve",
				Usage: "Expose the chatbot over HTTP and optionally NATS",
				Flags: append(baseFlags(),
					&cli.StringFlag{
						Name:  "http-addr",
						Usage: "HTTP server address",
						Value: ":8080",
					},
					&cli.StringFlag{
						Name:    "nats",
						Usage:   "NATS server URL",
						Sources: cli.EnvVars("NATS_URL"),
					},
					&cli.StringFlag{
						Name:    "nats-creds",
						Usage:   "NATS user credentials file",
						Sources: cli.EnvVars("NATS_CREDS"),
					},
					&cli.StringFlag{
						Name:  "topic",
						Usage: "NATS topic prefix",
						Value: "carbonchat",
					},
				),
				Action: runServe,
			},
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func baseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "path",
			Usage: "Base directory for config, corpus and vector store",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "OpenAI API key",
			Sources: cli.EnvVars("OPENAI_API_KEY"),
		},
	}
}

// setup resolves the base directory, installs the global logger, and loads
// the configuration. A missing config.yaml falls back to defaults.
func setup(cmd *cli.Command) (carbonchat.Config, error) {
	var cfg carbonchat.Config

	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return cfg, err
		}

		path = filepath.Join(homeDir, ".carbonchat")
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return cfg, err
	}

	zap.ReplaceGlobals(log)

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err == nil {
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	cfg.ApplyDefaults()

	if cfg.Corpus == "" {
		cfg.Corpus = filepath.Join(path, "ibm_carbon_v1.json")
	}

	if cfg.Vector.Path == "" {
		cfg.Vector.Path = filepath.Join(path, "vectors")
	}

	return cfg, nil
}

// requireAPIKey fails fast before any network call is attempted.
func requireAPIKey(cmd *cli.Command) (string, error) {
	apiKey := cmd.String("api-key")
	if apiKey == "" {
		return "", carbonchat.ErrMissingAPIKey
	}

	return apiKey, nil
}

func openVectorDB(cfg carbonchat.Config, apiKey string) (vector.VectorDB, error) {
	embedding := chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(cfg.Vector.EmbeddingModel))
	return chromemP.NewChromemVectorDB(cfg.Vector, embedding)
}

func runCrawl(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	docs, err := corpus.Crawl(cmd.String("base-url"), int(cmd.Int("max-depth")))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Corpus), 0755); err != nil {
		return err
	}

	if err := corpus.Save(cfg.Corpus, docs); err != nil {
		return err
	}

	fmt.Printf("Crawling complete. %d pages saved to %s\n", len(docs), cfg.Corpus)
	return nil
}

func runStats(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	docs, err := corpus.Load(cfg.Corpus)
	if err != nil {
		return err
	}

	stats := corpus.GetStats(docs)

	fmt.Println("Corpus statistics:")
	fmt.Printf("documents: %d\n", stats.Documents)
	fmt.Printf("total content length: %d\n", stats.TotalContentLength)
	fmt.Printf("average content length: %.1f\n", stats.AverageContentLength)
	fmt.Printf("unique urls: %d\n", stats.UniqueURLs)
	return nil
}

func runIndex(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	apiKey, err := requireAPIKey(cmd)
	if err != nil {
		return err
	}

	docs, err := corpus.Load(cfg.Corpus)
	if err != nil {
		return err
	}

	db, err := openVectorDB(cfg, apiKey)
	if err != nil {
		return err
	}

	if cmd.Bool("reset") {
		if err := db.DeleteCollection(cfg.Vector.Collection); err != nil {
			return err
		}
	}

	svc, err := carbonchat.NewService(cfg, db, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc = carbonchat.LoggingMiddleware(zap.L())(svc)

	summary, err := svc.IndexCorpus(ctx, docs)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d documents (%d chunks added, %d skipped) into %s\n",
		summary.Documents, summary.Chunks, summary.Skipped, cfg.Vector.Path)
	return nil
}

func runChat(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	apiKey, err := requireAPIKey(cmd)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.Vector.Path); os.IsNotExist(err) {
		return fmt.Errorf("vector store not found at %s, run 'carbonchat index' first", cfg.Vector.Path)
	}

	svc, err := newService(cfg, apiKey)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Println("\nCarbon Design System ChatBot (type 'exit' to quit)")
	fmt.Println("----------------------------------------")

	session := carbonchat.NewSession(svc, os.Stdin, os.Stdout)
	return session.Run(ctx)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	apiKey, err := requireAPIKey(cmd)
	if err != nil {
		return err
	}

	svc, err := newService(cfg, apiKey)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc = carbonchat.LoggingMiddleware(zap.L())(svc)

	endpoints := carbonchat.EndpointSet{
		IndexCorpus: carbonchat.IndexCorpusEndpoint(svc),
		Search:      carbonchat.SearchEndpoint(svc),
		Ask:         carbonchat.AskEndpoint(svc),
	}

	r := gin.Default()
	httpT.AddRouters(r, endpoints)

	go r.Run(cmd.String("http-addr"))

	natsURL := cmd.String("nats")
	if natsURL != "" {
		opts := []nats.Option{
			nats.Name("CarbonChat Server"),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(natsURL, opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "carbonchat",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup(cmd.String("topic"))
		natsT.AddEndpoints(root, endpoints)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	zap.L().Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}

func newService(cfg carbonchat.Config, apiKey string) (carbonchat.Service, error) {
	db, err := openVectorDB(cfg, apiKey)
	if err != nil {
		return nil, err
	}

	gen, err := openai.NewGenerator(apiKey, cfg.LLM)
	if err != nil {
		return nil, err
	}

	return carbonchat.NewService(cfg, db, gen)
}
