package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/askdocs/askdocs/internal/models"
	"github.com/askdocs/askdocs/internal/types"
	cfgPkg "github.com/askdocs/askdocs/pkg/config"
	"github.com/askdocs/askdocs/pkg/engine"
	"github.com/askdocs/askdocs/pkg/extractor"
	"github.com/askdocs/askdocs/pkg/llm"
	"github.com/askdocs/askdocs/pkg/processor"
	"github.com/askdocs/askdocs/pkg/store"
	"github.com/askdocs/askdocs/server"
)

type flags struct {
	configPath string
	ingestDir  string
	serve      bool
	port       string
	sourceFile string
	dbURL      string
	backend    string
	model      string
	chunkSize  int
	topK       int
}

func main() {
	f := parseFlags()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.ingestDir, "ingest", "", "Folder of documents to ingest")
	flag.BoolVar(&f.serve, "serve", false, "Start the HTTP server")
	flag.StringVar(&f.port, "port", "", "HTTP server port")
	flag.StringVar(&f.sourceFile, "source", "", "Restrict questions to a single source file")
	flag.StringVar(&f.dbURL, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&f.backend, "backend", "", "Vector store backend (pgvector or memory)")
	flag.StringVar(&f.model, "model", "", "LLM model to use")
	flag.IntVar(&f.chunkSize, "chunk-size", 0, "Size of text chunks")
	flag.IntVar(&f.topK, "top-k", 0, "Number of chunks to retrieve per question")
	flag.Parse()

	return f
}

func loadConfig(f flags) (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	// Command line flags win over config file and environment.
	if f.dbURL != "" {
		cfg.Database.URL = f.dbURL
	}
	if f.backend != "" {
		cfg.Database.Backend = f.backend
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if f.chunkSize != 0 {
		cfg.Processor.ChunkSize = f.chunkSize
	}
	if f.topK != 0 {
		cfg.Retrieval.TopK = f.topK
	}
	if f.port != "" {
		cfg.Server.Port = f.port
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %v", e)
		}
		return nil, fmt.Errorf("invalid configuration")
	}

	return cfg, nil
}

func newVectorStore(cfg *cfgPkg.Config) (types.VectorStore, error) {
	if cfg.Database.Backend == "memory" {
		return store.NewMemoryStore(), nil
	}
	return store.NewWithConfig(store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
	})
}

func buildEngine(cfg *cfgPkg.Config) (*engine.Engine, types.VectorStore, error) {
	vectorStore, err := newVectorStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize vector store: %v", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		BatchSize: cfg.Embedding.BatchSize,
		RateLimit: cfg.Embedding.RateLimit,
	})
	if err != nil {
		vectorStore.Close()
		return nil, nil, fmt.Errorf("failed to initialize embedder: %v", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		NonAnswers:  cfg.LLM.NonAnswers,
	})
	if err != nil {
		vectorStore.Close()
		return nil, nil, fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})

	eng := engine.New(engine.Config{
		TopK:      cfg.Retrieval.TopK,
		FetchK:    cfg.Retrieval.FetchK,
		MMRLambda: float32(cfg.Retrieval.MMRLambda),
		UploadDir: cfg.Server.UploadDir,
	}, extractor.New(), proc, embedder, vectorStore, chatEngine)

	return eng, vectorStore, nil
}

func run(f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	eng, vectorStore, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	ctx := context.Background()

	if f.ingestDir != "" {
		if err := ingest(ctx, eng, f.ingestDir); err != nil {
			return err
		}
		if !f.serve {
			return nil
		}
	}

	if f.serve {
		srv := server.New(server.Config{
			Port:      cfg.Server.Port,
			UploadDir: cfg.Server.UploadDir,
		}, eng)
		color.Cyan("Serving document Q&A on port %s", cfg.Server.Port)
		return srv.Start()
	}

	return chat(ctx, eng, f.sourceFile)
}

func ingest(ctx context.Context, eng *engine.Engine, dir string) error {
	color.Blue("\nIngesting documents from %s\n", dir)

	bar := getSpinner("Extracting and indexing documents...")
	report, err := eng.IngestFolder(ctx, dir)
	bar.Finish()
	fmt.Print("\r")
	if err != nil {
		return fmt.Errorf("failed to ingest documents: %v", err)
	}

	color.Green("✓ Indexed %d chunks from %d files\n", report.Chunks, len(report.Files))
	for _, fe := range report.Failed {
		color.Red("✗ Skipped %s", fe.Error())
	}
	return nil
}

func chat(ctx context.Context, eng *engine.Engine, sourceFile string) error {
	color.Cyan("\nAsk questions about your documents (type 'exit' to quit)")
	if sourceFile != "" {
		color.Cyan("Answers restricted to %s", sourceFile)
	}

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.ToLower(question) == "exit" {
			break
		}

		spinner := getSpinner("Searching documents...")
		exchanges, err := eng.Ask(ctx, []string{question}, sourceFile)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		printExchange(assistantPrompt, exchanges[0])
	}

	return nil
}

func printExchange(assistantPrompt func(format string, a ...interface{}), exchange models.Exchange) {
	assistantPrompt("Assistant: %s\n", exchange.Answer)
	if len(exchange.Sources) > 0 {
		fmt.Printf("Sources: %s\n", strings.Join(exchange.Sources, ", "))
	}
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
