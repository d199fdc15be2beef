package handlers_test

import (
	"CardVault/internal/config"
	"CardVault/internal/handlers"
	"CardVault/internal/middleware"
	"CardVault/internal/repo"
	"CardVault/internal/repo/fs"
	"CardVault/internal/scryfall"
	"CardVault/internal/service"
	"CardVault/internal/worker"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "s3cret"

const catalogJSON = `[
 {"id":"abc","name":"Lightning Bolt","prices":{"eur":"1.00","eur_foil":"2.00","usd":"1.10"}},
 {"id":"def","name":"Counterspell","prices":{"eur":"0.40","eur_foil":null}}
]`

const aliceCSV = "Name,Scryfall ID,Foil,Purchase price\n" +
	"Lightning Bolt,abc,foil,0.10\n" +
	"Lightning Bolt,abc,,0.10\n" +
	"Counterspell,def,foil,0.20\n"

type testEnv struct {
	router   http.Handler
	cfg      *config.Config
	storeDir string
	jobs     repo.JobRepository
	runs     repo.RunRepository
	bulkHits atomic.Int32
}

func newTestEnv(t *testing.T, withCatalog bool) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{storeDir: filepath.Join(root, "textfiles")}

	var bulk *httptest.Server
	bulk = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bulk-data":
			env.bulkHits.Add(1)
			_, _ = fmt.Fprintf(w, `{"object":"list","data":[{"type":"default_cards","download_uri":"%s/cards.json"}]}`, bulk.URL)
		case "/cards.json":
			_, _ = w.Write([]byte(catalogJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(bulk.Close)

	cfg := &config.Config{
		Password:        testPassword,
		AuthSecret:      "test-secret",
		StoreDir:        env.storeDir,
		PublicDir:       filepath.Join(root, "public"),
		CatalogPath:     filepath.Join(root, "data", "cards.json"),
		BulkDataURL:     bulk.URL + "/bulk-data",
		BulkDataType:    scryfall.DefaultCardsType,
		PriceCurrency:   "eur",
		RefreshSchedule: "0 3 * * *",
		RefreshTZ:       "Europe/Berlin",
		UploadMaxSizeMB: 1,
		BcryptCost:      bcrypt.MinCost,
	}
	env.cfg = cfg
	if withCatalog {
		require.NoError(t, os.MkdirAll(filepath.Dir(cfg.CatalogPath), 0o755))
		require.NoError(t, os.WriteFile(cfg.CatalogPath, []byte(catalogJSON), 0o644))
	}

	logger := zap.NewNop().Sugar()
	store := fs.NewInventoryStore(cfg.StoreDir)
	require.NoError(t, store.EnsureReady())

	db, err := repo.InitDB("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	env.jobs = repo.NewJobRepository(db)
	env.runs = repo.NewRunRepository(db)

	queue := worker.NewQueue(8, logger)
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)

	locks := service.NewFileLocks()
	enrichSvc := service.NewEnrichService(store, locks, service.FileCatalog(cfg.CatalogPath, cfg.PriceCurrency), logger)
	catalogSvc := service.NewCatalogService(scryfall.NewClient(cfg.BulkDataURL, bulk.Client()), enrichSvc, env.runs, cfg.CatalogPath, cfg.BulkDataType, logger)
	searchSvc := service.NewSearchService(store, logger)
	inventorySvc := service.NewInventoryService(store, locks, enrichSvc, env.jobs, queue, logger)

	guard, err := middleware.NewPasswordGuard(cfg.Password, cfg.BcryptCost)
	require.NoError(t, err)

	env.router = handlers.NewHandler(searchSvc, inventorySvc, catalogSvc, guard, logger, cfg).Router
	return env
}

func (e *testEnv) writeFile(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.storeDir, name), []byte(body), 0o644))
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func uploadRequest(t *testing.T, username, body string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if username != "" {
		require.NoError(t, mw.WriteField("username", username))
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if body != "" {
		fw, err := mw.CreateFormFile("file", "inventory.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeRows(t *testing.T, rr *httptest.ResponseRecorder) []map[string]string {
	t.Helper()
	var rows []map[string]string
	require.NoError(t, json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&rows))
	return rows
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&m))
	return m
}
