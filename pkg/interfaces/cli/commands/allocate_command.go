package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/lotalloc/pkg/application/dto"
	"github.com/vsinha/lotalloc/pkg/application/services/allocation"
	"github.com/vsinha/lotalloc/pkg/domain/entities"
	"github.com/vsinha/lotalloc/pkg/domain/repositories"
	"github.com/vsinha/lotalloc/pkg/infrastructure/cache"
	appconfig "github.com/vsinha/lotalloc/pkg/infrastructure/config"
	"github.com/vsinha/lotalloc/pkg/infrastructure/events"
	"github.com/vsinha/lotalloc/pkg/infrastructure/lock"
	"github.com/vsinha/lotalloc/pkg/infrastructure/logging"
	"github.com/vsinha/lotalloc/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/lotalloc/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/lotalloc/pkg/infrastructure/rest"
	"github.com/vsinha/lotalloc/pkg/interfaces/cli/output"
)

const (
	ModePreview = "preview"
	ModeSave    = "save"
	ModeConfirm = "confirm"
	ModeCancel  = "cancel"
)

// Config holds configuration for the allocate command
type Config struct {
	ScenarioDir     string
	LinesFile       string
	LotsFile        string
	AllocationsFile string
	EnvFile         string
	Mode            string
	OutputDir       string
	Format          string
	Verbose         bool
	Help            bool

	// Out receives the report; defaults to stdout
	Out io.Writer
	// LogOut receives log lines; defaults to stderr
	LogOut io.Writer
}

// AllocateCommand runs an allocation session over every order line of a scenario
type AllocateCommand struct {
	config Config
}

// backend bundles the ports a session needs plus the lines to process
type backend struct {
	lines   []*entities.OrderLine
	source  repositories.CandidateLotSource
	gateway repositories.AllocationGateway
	orders  repositories.OrderLineSource
	locker  repositories.CommitLocker
	repo    *memory.AllocationRepository
	closers []func() error
}

func (b *backend) close() {
	for _, c := range b.closers {
		_ = c()
	}
}

// NewAllocateCommand creates a new allocate command with the given configuration
func NewAllocateCommand(config Config) *AllocateCommand {
	if config.Out == nil {
		config.Out = os.Stdout
	}
	if config.LogOut == nil {
		config.LogOut = os.Stderr
	}
	return &AllocateCommand{config: config}
}

// Execute runs the allocate command
func (c *AllocateCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	files, err := c.resolveInputFiles()
	if err != nil {
		return fmt.Errorf("failed to resolve input files: %w", err)
	}

	var envFiles []string
	if c.config.EnvFile != "" {
		envFiles = append(envFiles, c.config.EnvFile)
	}
	settings, err := appconfig.Load(envFiles...)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(settings.LogLevel, settings.LogFormat, c.config.LogOut)
	entry := logrus.NewEntry(logger).WithField("mode", c.config.Mode)

	if c.config.Verbose {
		c.printHeader(files, settings)
	}

	be, err := c.buildBackend(ctx, files, settings, entry)
	if err != nil {
		logging.LogError(logger, "cli.allocate", "Execute", "building backend", files, err)
		return err
	}
	defer be.close()

	var before memory.Footprint
	if be.repo != nil {
		before = be.repo.Footprint()
	}
	report := c.run(ctx, be, entry)
	if c.config.Verbose && be.repo != nil {
		after := be.repo.Footprint()
		fmt.Fprintf(c.config.Out, "🧠 Repository: %s (allocated during run: %s)\n\n",
			after, memory.FormatBytes(after.AllocatedSince(before)))
	}

	outputConfig := output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
	}
	if err := output.Generate(report, outputConfig, c.config.Out); err != nil {
		logging.LogError(logger, "cli.allocate", "Execute", "writing report", outputConfig, err)
		return fmt.Errorf("failed to generate output: %w", err)
	}

	return nil
}

func (c *AllocateCommand) buildBackend(
	ctx context.Context,
	files map[string]string,
	settings *appconfig.Config,
	logger *logrus.Entry,
) (*backend, error) {
	loader := csv.NewLoader()
	be := &backend{}

	if settings.UsesRemoteAPI() {
		// only the line ids are taken from the CSV; the service owns the data
		lines, err := loader.LoadOrderLines(files["Lines"])
		if err != nil {
			return nil, fmt.Errorf("error loading order lines: %w", err)
		}
		client, err := rest.NewClient(settings.APIBaseURL, settings.APITimeout, settings.Breaker, logger)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			remote, err := client.GetOrderLine(ctx, line.ID)
			if err != nil {
				return nil, fmt.Errorf("error fetching order line %d: %w", line.ID, err)
			}
			be.lines = append(be.lines, remote)
		}
		be.source, be.gateway, be.orders = client, client, client
	} else {
		repo, lines, err := c.loadScenario(loader, files)
		if err != nil {
			return nil, err
		}
		be.lines = lines
		be.repo = repo
		be.source, be.gateway, be.orders = repo, repo, repo
	}

	if settings.UsesRedis() {
		rdb := redis.NewClient(&redis.Options{Addr: settings.RedisAddress})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unavailable, running without candidate cache and commit lock")
			_ = rdb.Close()
		} else {
			be.source = cache.NewCandidateCache(be.source, rdb, settings.CandidateCacheTTL, logger)
			be.locker = lock.NewRedisLocker(rdb, settings.CommitLockTTL)
			be.closers = append(be.closers, rdb.Close)
		}
	}

	return be, nil
}

func (c *AllocateCommand) loadScenario(
	loader *csv.Loader,
	files map[string]string,
) (*memory.AllocationRepository, []*entities.OrderLine, error) {
	var (
		scenario *csv.Scenario
		err      error
	)
	if c.config.ScenarioDir != "" && c.config.LinesFile == "" {
		scenario, err = loader.LoadScenario(c.config.ScenarioDir)
		if err != nil {
			return nil, nil, fmt.Errorf("error loading scenario: %w", err)
		}
	} else {
		scenario, err = c.loadFiles(loader, files)
		if err != nil {
			return nil, nil, err
		}
	}

	repo := memory.NewAllocationRepository()
	if err := repo.LoadLots(scenario.Lots); err != nil {
		return nil, nil, fmt.Errorf("error loading lots: %w", err)
	}
	if err := repo.LoadOrderLines(scenario.OrderLines); err != nil {
		return nil, nil, fmt.Errorf("error loading order lines: %w", err)
	}
	lines, err := repo.GetAllOrderLines()
	if err != nil {
		return nil, nil, err
	}
	return repo, lines, nil
}

func (c *AllocateCommand) loadFiles(loader *csv.Loader, files map[string]string) (*csv.Scenario, error) {
	lines, err := loader.LoadOrderLines(files["Lines"])
	if err != nil {
		return nil, fmt.Errorf("error loading order lines: %w", err)
	}
	lots, err := loader.LoadLots(files["Lots"])
	if err != nil {
		return nil, fmt.Errorf("error loading lots: %w", err)
	}

	if path := files["Allocations"]; path != "" {
		allocations, err := loader.LoadAllocations(path)
		if err != nil {
			return nil, fmt.Errorf("error loading allocations: %w", err)
		}
		byID := make(map[entities.OrderLineID]*entities.OrderLine, len(lines))
		for _, line := range lines {
			byID[line.ID] = line
		}
		for lineID, allocs := range allocations {
			line, ok := byID[lineID]
			if !ok {
				return nil, fmt.Errorf("allocations reference unknown order line %d", lineID)
			}
			line.Allocations = append(line.Allocations, allocs...)
		}
	}

	return &csv.Scenario{OrderLines: lines, Lots: lots}, nil
}

// run drives one session through every line: select, auto-allocate, commit
func (c *AllocateCommand) run(ctx context.Context, be *backend, logger *logrus.Entry) *dto.AllocationReport {
	start := time.Now()
	store := events.NewMemoryLog(logger)
	notices := newNoticeRecorder(logging.NewLogNotifier(logger))
	failures := &failureCounter{}
	unsubscribe := store.Subscribe(failures.handle, events.CommitFailedEvent)

	commitOpts := []allocation.CommitOption{
		allocation.WithCommitNotifier(notices),
		allocation.WithCommitEvents(store),
		allocation.WithCommitLogger(logger),
	}
	if be.locker != nil {
		commitOpts = append(commitOpts, allocation.WithCommitLocker(be.locker))
	}
	commits := allocation.NewCommitService(be.gateway, commitOpts...)
	session := allocation.NewSession(be.source, commits,
		allocation.WithOrderLineSource(be.orders),
		allocation.WithNotifier(notices),
		allocation.WithEventLog(store),
		allocation.WithLogger(logger),
	)
	defer session.Deselect()

	report := &dto.AllocationReport{Mode: c.config.Mode, GeneratedAt: start}
	for _, line := range be.lines {
		if c.config.Verbose {
			fmt.Fprintf(c.config.Out, "🔄 Processing order line %d...\n", line.ID)
		}
		report.Lines = append(report.Lines, c.processLine(ctx, session, *line))
	}

	for i := range report.Lines {
		report.Lines[i].Notices = notices.take(report.Lines[i].OrderLineID)
	}
	unsubscribe()
	store.Drain()
	report.CommitFailures = failures.count()
	report.EventCount = store.Len()
	report.Elapsed = time.Since(start)
	return report
}

func (c *AllocateCommand) processLine(
	ctx context.Context,
	session *allocation.Session,
	line entities.OrderLine,
) dto.LineReport {
	lineReport := dto.LineReport{
		OrderLineID: line.ID,
		ProductID:   line.ProductID,
		Unit:        line.Unit,
	}

	if outcome := session.SelectLine(ctx, line); outcome != allocation.LoadReady {
		lineReport.Error = fmt.Sprintf("candidate lots not loaded (%s)", outcome)
		c.fillFromSnapshot(&lineReport, session.Snapshot())
		return lineReport
	}

	if c.config.Mode != ModeCancel && session.Totals().Remaining.IsPositive() {
		session.AutoAllocate()
	}
	before := session.Snapshot()
	lineReport.CandidateCount = len(before.Candidates)
	lineReport.Draft = draftEntries(before.Draft)

	var result *dto.CommitResult
	switch c.config.Mode {
	case ModeSave:
		r := session.Save(ctx)
		result = &r
	case ModeConfirm:
		r := session.SaveAndConfirm(ctx)
		result = &r
	case ModeCancel:
		r := session.CancelAll(ctx)
		result = &r
	}

	if result != nil {
		lineReport.Operation = result.Operation.String()
		lineReport.Outcome = result.Outcome.String()
		lineReport.AllocationIDs = result.AllocationIDs
		lineReport.FailedIDs = result.FailedIDs
		if !result.OK() && result.Err != nil {
			lineReport.Error = result.Err.Error()
		}
	}

	c.fillFromSnapshot(&lineReport, session.Snapshot())
	return lineReport
}

func (c *AllocateCommand) fillFromSnapshot(lineReport *dto.LineReport, snapshot dto.SessionSnapshot) {
	lineReport.Totals = snapshot.Totals
	lineReport.Status = snapshot.Totals.Status
	lineReport.StatusLabel = snapshot.Status.Label()
	lineReport.Shortfall = snapshot.Totals.Remaining
	if lineReport.CandidateCount == 0 {
		lineReport.CandidateCount = len(snapshot.Candidates)
	}
}

func draftEntries(draft map[entities.LotID]entities.Quantity) []entities.DraftEntry {
	entries := make([]entities.DraftEntry, 0, len(draft))
	for lotID, qty := range draft {
		if qty.IsPositive() {
			entries = append(entries, entities.DraftEntry{LotID: lotID, Quantity: qty})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LotID < entries[j].LotID
	})
	return entries
}

// noticeRecorder keeps notice messages per line and forwards them
type noticeRecorder struct {
	mu     sync.Mutex
	next   allocation.Notifier
	byLine map[entities.OrderLineID][]string
}

func newNoticeRecorder(next allocation.Notifier) *noticeRecorder {
	return &noticeRecorder{
		next:   next,
		byLine: make(map[entities.OrderLineID][]string),
	}
}

func (r *noticeRecorder) Notify(notice allocation.Notice) {
	r.mu.Lock()
	r.byLine[notice.OrderLineID] = append(r.byLine[notice.OrderLineID],
		fmt.Sprintf("[%s] %s", notice.Level, notice.Message))
	r.mu.Unlock()
	r.next.Notify(notice)
}

func (r *noticeRecorder) take(lineID entities.OrderLineID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	notices := r.byLine[lineID]
	delete(r.byLine, lineID)
	return notices
}

// failureCounter counts commit failures reported on the event log
type failureCounter struct {
	mu    sync.Mutex
	total int
}

func (f *failureCounter) handle(event events.Event) error {
	if _, ok := event.Payload().(events.CommitFailed); !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload(), event.Type())
	}
	f.mu.Lock()
	f.total++
	f.mu.Unlock()
	return nil
}

func (f *failureCounter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// validateInputs checks that required inputs are provided
func (c *AllocateCommand) validateInputs() error {
	if c.config.ScenarioDir == "" && (c.config.LinesFile == "" || c.config.LotsFile == "") {
		return fmt.Errorf("either -scenario or both -lines and -lots must be specified")
	}

	switch c.config.Mode {
	case ModePreview, ModeSave, ModeConfirm, ModeCancel:
	default:
		return fmt.Errorf("unsupported mode: %s", c.config.Mode)
	}

	switch c.config.Format {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("unsupported output format: %s", c.config.Format)
	}
	return nil
}

// resolveInputFiles determines the actual file paths to use
func (c *AllocateCommand) resolveInputFiles() (map[string]string, error) {
	files := make(map[string]string)

	if c.config.ScenarioDir != "" {
		scenarioDir := c.config.ScenarioDir
		if _, err := os.Stat(scenarioDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("scenario directory does not exist: %s", scenarioDir)
		}

		files["Lines"] = filepath.Join(scenarioDir, csv.OrderLinesFile)
		files["Lots"] = filepath.Join(scenarioDir, csv.LotsFile)
		if allocations := filepath.Join(scenarioDir, csv.AllocationsFile); fileExists(allocations) {
			files["Allocations"] = allocations
		}
	}

	// individual files override the scenario directory
	if c.config.LinesFile != "" {
		files["Lines"] = c.config.LinesFile
	}
	if c.config.LotsFile != "" {
		files["Lots"] = c.config.LotsFile
	}
	if c.config.AllocationsFile != "" {
		files["Allocations"] = c.config.AllocationsFile
	}

	for name, path := range files {
		if !fileExists(path) {
			return nil, fmt.Errorf("%s file does not exist: %s", strings.ToLower(name), path)
		}
	}

	return files, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// printHeader prints the command header
func (c *AllocateCommand) printHeader(files map[string]string, settings *appconfig.Config) {
	out := c.config.Out
	fmt.Fprintf(out, "📦 Lot Allocation\n")
	fmt.Fprintf(out, "=================\n")
	fmt.Fprintf(out, "Mode: %s\n", c.config.Mode)
	for _, name := range []string{"Lines", "Lots", "Allocations"} {
		if path, ok := files[name]; ok {
			fmt.Fprintf(out, "%s: %s\n", name, path)
		}
	}
	if settings.UsesRemoteAPI() {
		fmt.Fprintf(out, "Order service: %s\n", settings.APIBaseURL)
	}
	if settings.UsesRedis() {
		fmt.Fprintf(out, "Redis: %s\n", settings.RedisAddress)
	}
	fmt.Fprintln(out)
}

// showHelp displays usage information
func (c *AllocateCommand) showHelp() {
	fmt.Fprintf(c.config.Out, `Lot Allocation CLI - allocate stock lots to order lines

USAGE:
    lotalloc -scenario <directory> -mode <mode>
    lotalloc -lines <file> -lots <file> [-allocations <file>] -mode <mode>

OPTIONS:
    -scenario <dir>        Path to scenario directory containing CSV files
    -lines <file>          Path to order lines CSV file
    -lots <file>           Path to stock lots CSV file
    -allocations <file>    Path to persisted allocations CSV file (optional)
    -mode <mode>           preview, save, confirm or cancel (default: preview)
    -env <file>            .env file to load before reading LOTALLOC_* variables
    -output <dir>          Output directory for results (required for csv)
    -format <fmt>          Output format: text, json, csv (default: text)
    -verbose               Enable verbose output
    -help                  Show this help message

MODES:
    preview    auto-allocate lines that are short and report, nothing is written
    save       auto-allocate and save the draft as soft allocations
    confirm    auto-allocate, save and confirm the saved allocations as hard
    cancel     cancel every persisted allocation of each line

SCENARIO DIRECTORY STRUCTURE:
    scenario_name/
    ├── order_lines.csv   # Order lines to allocate
    ├── lots.csv          # Stock lots
    └── allocations.csv   # Persisted allocations (optional)

CSV FILE FORMATS:

order_lines.csv:
    id,order_id,product_id,required_quantity,unit
    1,500,1,120,box

lots.csv:
    lot_id,product_id,lot_number,available_quantity,expiry_date,warehouse
    101,1,AMX-2301,50,2026-03-31,Central

allocations.csv:
    id,order_line_id,lot_id,allocated_quantity,allocation_type
    9001,2,101,15,soft

ENVIRONMENT:
    LOTALLOC_API_BASE_URL      Use the order service instead of the CSV data
    LOTALLOC_REDIS_ADDRESS     Cache candidate lots and lock commits in Redis
    LOTALLOC_LOG_LEVEL         Log level (default: info)
    LOTALLOC_LOG_FORMAT        json or text (default: json)

EXAMPLES:
    # Preview the pharmacy scenario
    lotalloc -scenario scenarios/pharmacy -verbose

    # Save and confirm, writing a JSON report
    lotalloc -scenario scenarios/pharmacy -mode confirm -format json -output results/
`)
}
