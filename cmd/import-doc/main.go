package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/circulx/products-rag/internal/app"
	"github.com/circulx/products-rag/internal/config"
	"github.com/circulx/products-rag/internal/ingest"
	"github.com/circulx/products-rag/internal/llm"
	"github.com/circulx/products-rag/internal/logger"
	"github.com/circulx/products-rag/internal/vectorstore"
)

type options struct {
	seller    string
	fromFiles bool
	path      string
	fromURL   bool
	baseURL   string
	maxPages  int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:          "import-doc",
		Short:        "Import product documents into the vector store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.seller, "seller", config.DefaultSellerPartition, "seller_name stored with every chunk")
	f.BoolVar(&o.fromFiles, "from-files", false, "import local files (.md/.txt/.html/.pdf)")
	f.StringVar(&o.path, "path", "", "base directory for --from-files")
	f.BoolVar(&o.fromURL, "from-url", false, "import by crawling a site")
	f.StringVar(&o.baseURL, "base-url", "", "start URL for --from-url")
	f.IntVar(&o.maxPages, "max-pages", 50, "page limit for --from-url")

	return cmd
}

func (o *options) validate() error {
	if o.seller == "" {
		return errors.New("--seller is required")
	}
	if !o.fromFiles && !o.fromURL {
		return errors.New("use at least one of --from-files or --from-url")
	}
	if o.fromFiles && o.path == "" {
		return errors.New("--path is required with --from-files")
	}
	if o.fromURL && o.baseURL == "" {
		return errors.New("--base-url is required with --from-url")
	}
	return nil
}

type importer struct {
	store  vectorstore.Store
	seller string
	log    *zap.Logger
}

func run(ctx context.Context, o *options) error {
	cfg := config.Load()
	log := logger.Must(cfg.LogLevel, "console")
	defer func() { _ = log.Sync() }()

	gemini, err := llm.NewGeminiClient(ctx, llm.Config{
		APIKey:         cfg.GeminiAPIKey,
		ChatModel:      cfg.GeminiModel,
		EmbeddingModel: cfg.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("init gemini: %w", err)
	}

	store, err := app.OpenWriter(ctx, cfg, gemini)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.VectorBackend, err)
	}
	defer store.Close()

	im := &importer{store: store, seller: o.seller, log: log}

	if o.fromFiles {
		if err := im.importFiles(ctx, o.path); err != nil {
			return fmt.Errorf("import files: %w", err)
		}
	}
	if o.fromURL {
		if err := im.importHTTP(ctx, o.baseURL, o.maxPages); err != nil {
			return fmt.Errorf("import url: %w", err)
		}
	}

	log.Info("import finished", zap.String("seller", o.seller), zap.String("collection", cfg.Collection))
	return nil
}

func (im *importer) importFiles(ctx context.Context, root string) error {
	im.log.Info("importing local files", zap.String("root", root), zap.String("seller", im.seller))

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !ingest.IsSupported(path) {
			return nil
		}

		text, err := ingest.ExtractFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		return im.importText(ctx, ingest.Source{
			Seller: im.seller,
			Title:  ingest.FilenameToTitle(path),
			Ref:    filepath.ToSlash(rel),
		}, text)
	})
}

func (im *importer) importHTTP(ctx context.Context, baseURL string, maxPages int) error {
	im.log.Info("crawling", zap.String("base", baseURL), zap.Int("max_pages", maxPages))

	base, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base-url: %w", err)
	}

	visited := make(map[string]bool)
	queue := []string{base.String()}
	pages := 0

	for len(queue) > 0 && pages < maxPages {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true
		pages++

		page, err := fetch(ctx, current)
		if err != nil {
			im.log.Warn("fetch failed", zap.String("url", current), zap.Error(err))
			continue
		}

		text := ingest.SanitizeUTF8(ingest.ExtractMainText(page))
		if text != "" {
			src := ingest.Source{Seller: im.seller, Title: ingest.URLToTitle(current, base), Ref: current}
			if err := im.importText(ctx, src, text); err != nil {
				im.log.Warn("store failed", zap.String("url", current), zap.Error(err))
			}
		}

		for _, link := range ingest.ExtractLinks(page, base) {
			if !visited[link] {
				queue = append(queue, link)
			}
		}
	}

	return nil
}

func (im *importer) importText(ctx context.Context, src ingest.Source, text string) error {
	docs := ingest.Documents(src, text)
	if len(docs) == 0 {
		return nil
	}
	if err := im.store.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("upsert %s: %w", src.Ref, err)
	}
	im.log.Info("chunks imported", zap.String("source", src.Ref), zap.Int("chunks", len(docs)))
	return nil
}

func fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", fmt.Errorf("unsupported content type %q", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
