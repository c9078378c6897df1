package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nats-io/nats.go"
	"github.com/philippgille/chromem-go"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ashton-krac/carbonchat"
	"github.com/ashton-krac/carbonchat/llm/openai"

	chromemP "github.com/ashton-krac/carbonchat/persistence/chromem"
	natsT "github.com/ashton-krac/carbonchat/transport/nats"
)

const serverInstructions = `CarbonChat answers questions about the IBM Carbon Design System
from an indexed copy of its documentation.

Available tools:
- search_docs: retrieve the documentation passages most similar to a query
- ask_docs: ask a question and get an answer grounded in the documentation

Answers are restricted to the indexed documentation; when the documentation
does not cover a topic, the answer says so.`

func main() {
	cmd := &cli.Command{
		Name:  "carbonchat_mcp_server",
		Usage: "CarbonChat MCP Server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Base directory for config and vector store",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "OpenAI API key",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "Attach to a running carbonchat service over NATS instead of opening the store locally",
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
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	// MCP talks on stdout; keep logs on stderr only.
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}

	zap.ReplaceGlobals(logger)

	var svc carbonchat.Service

	natsURL := cmd.String("nats")
	if natsURL != "" {
		opts := []nats.Option{
			nats.Name("CarbonChat MCP Server"),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(natsURL, opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		endpoints := natsT.MakeEndpoints(nc, cmd.String("topic"))
		svc = carbonchat.ProxyMiddleware(endpoints)(svc)
	} else {
		local, err := localService(cmd)
		if err != nil {
			return err
		}
		defer local.Close()

		svc = local
	}

	s := server.NewMCPServer("carbonchat", "1.0.0",
		server.WithToolCapabilities(false),
		server.WithInstructions(serverInstructions),
	)

	searchTool := mcp.NewTool("search_docs",
		mcp.WithDescription("Search the IBM Carbon Design System documentation by semantic similarity."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language search query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of passages to return"),
		),
	)

	s.AddTool(searchTool, searchHandler(svc))

	askTool := mcp.NewTool("ask_docs",
		mcp.WithDescription("Ask a question answered only from the Carbon documentation."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	)

	s.AddTool(askTool, askHandler(svc))

	return server.ServeStdio(s)
}

func localService(cmd *cli.Command) (carbonchat.Service, error) {
	apiKey := cmd.String("api-key")
	if apiKey == "" {
		return nil, carbonchat.ErrMissingAPIKey
	}

	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		path = filepath.Join(homeDir, ".carbonchat")
	}

	var cfg carbonchat.Config

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err == nil {
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.ApplyDefaults()

	if cfg.Vector.Path == "" {
		cfg.Vector.Path = filepath.Join(path, "vectors")
	}

	embedding := chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(cfg.Vector.EmbeddingModel))

	db, err := chromemP.NewChromemVectorDB(cfg.Vector, embedding)
	if err != nil {
		return nil, err
	}

	gen, err := openai.NewGenerator(apiKey, cfg.LLM)
	if err != nil {
		return nil, err
	}

	return carbonchat.NewService(cfg, db, gen)
}

func searchHandler(svc carbonchat.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		k := req.GetInt("k", 0)

		docs, err := svc.Search(ctx, query, k)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		bs, err := json.Marshal(docs)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(bs)), nil
	}
}

func askHandler(svc carbonchat.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		fragments, err := svc.Ask(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var b strings.Builder
		for fragment := range fragments {
			if fragment.Err != nil {
				if b.Len() == 0 {
					return mcp.NewToolResultError(fragment.Err.Error()), nil
				}

				b.WriteString("\n[answer interrupted: " + fragment.Err.Error() + "]")
				break
			}

			b.WriteString(fragment.Text)
		}

		return mcp.NewToolResultText(b.String()), nil
	}
}
