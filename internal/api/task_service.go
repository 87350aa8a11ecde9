package api

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"fapiao/internal/config"
	"fapiao/internal/importer"
	"fapiao/internal/invoice"
	"fapiao/internal/logging"
	"fapiao/internal/naming"
	"fapiao/internal/recognition"
	"fapiao/internal/renamer"
	"fapiao/internal/services"
	"fapiao/internal/taskstore"
)

// Recognizer abstracts the recognition pipeline so tests can substitute a
// stub without network access.
type Recognizer interface {
	RecognizeItem(ctx context.Context, item *invoice.Item)
}

// RecognizerFactory builds a Recognizer for the current configuration. A
// fresh pipeline is constructed per recognize call so runtime settings
// updates take effect immediately.
type RecognizerFactory func(cfg *config.Config, logger *slog.Logger) Recognizer

// TaskService exposes every task operation behind the HTTP API and the CLI.
// All reads and writes go through the store; summaries are recomputed on
// every save.
type TaskService struct {
	store  *taskstore.Store
	logger *slog.Logger

	mu      sync.Mutex // guards cfg and cfgPath
	cfg     *config.Config
	cfgPath string

	newRecognizer RecognizerFactory
}

// NewTaskService constructs the service facade. cfgPath may be empty, in
// which case runtime settings updates are kept in memory only.
func NewTaskService(store *taskstore.Store, cfg *config.Config, cfgPath string, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TaskService{
		store:   store,
		logger:  logging.NewComponentLogger(logger, "api"),
		cfg:     cfg,
		cfgPath: cfgPath,
		newRecognizer: func(cfg *config.Config, logger *slog.Logger) Recognizer {
			return recognition.NewPipeline(cfg, logger)
		},
	}
}

// SetRecognizerFactory overrides pipeline construction. Intended for tests.
func (s *TaskService) SetRecognizerFactory(factory RecognizerFactory) {
	if factory != nil {
		s.newRecognizer = factory
	}
}

func (s *TaskService) snapshotConfig() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := *s.cfg
	return cfg
}

func (s *TaskService) mustTask(id string) (*invoice.Task, error) {
	task, err := s.store.Get(id)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "get task", id, nil)
	}
	return task, nil
}

func (s *TaskService) saveTask(task *invoice.Task) (TaskView, error) {
	task.UpdatedAt = time.Now().UTC()
	task.RefreshSummary()
	if err := s.store.Save(task); err != nil {
		return TaskView{}, err
	}
	return FromTask(task), nil
}

// ImportTask scans the given paths or glob patterns and creates a new task
// holding one pending item per supported file.
func (s *TaskService) ImportTask(ctx context.Context, paths []string) (TaskView, error) {
	files, err := importer.Scan(paths)
	if err != nil {
		return TaskView{}, services.Wrap(services.ErrValidation, "api", "import", "scan paths", err)
	}
	if len(files) == 0 {
		return TaskView{}, services.Wrap(services.ErrValidation, "api", "import", "no supported invoice files found", nil)
	}

	cfg := s.snapshotConfig()
	task := invoice.NewTask(cfg.Naming.Template)
	task.Items = importer.NewItems(files)

	view, err := s.saveTask(task)
	if err != nil {
		return TaskView{}, err
	}
	logging.WithContext(services.WithTaskID(ctx, task.ID), s.logger).Info("task imported",
		logging.Args(logging.Int("files", len(files)))...)
	return view, nil
}

// GetTask returns the current state of one task.
func (s *TaskService) GetTask(ctx context.Context, taskID string) (TaskView, error) {
	task, err := s.mustTask(taskID)
	if err != nil {
		return TaskView{}, err
	}
	return s.saveTask(task)
}

// ListTasks returns all known tasks, newest first.
func (s *TaskService) ListTasks(ctx context.Context) []TaskView {
	tasks := s.store.List()
	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, FromTask(task))
	}
	return views
}

// Recognize runs the recognition pipeline over the targeted items (all items
// when itemIDs is empty) and refreshes name previews for the whole task so
// group suffixes stay consistent. A non-empty sessionAPIKey overrides the
// configured cloud key for this request only.
func (s *TaskService) Recognize(ctx context.Context, taskID string, itemIDs []string, sessionAPIKey string) (TaskView, error) {
	task, err := s.mustTask(taskID)
	if err != nil {
		return TaskView{}, err
	}

	targets := idSet(itemIDs)
	cfg := s.snapshotConfig()
	if key := strings.TrimSpace(sessionAPIKey); key != "" {
		cfg.SiliconFlow.APIKey = key
	}
	pipeline := s.newRecognizer(&cfg, s.logger)

	ctx = services.WithTaskID(ctx, task.ID)
	for _, item := range task.Items {
		if targets != nil {
			if _, ok := targets[item.ID]; !ok {
				continue
			}
		}
		pipeline.RecognizeItem(services.WithItemID(ctx, item.ID), item)
	}

	naming.ApplyNamePreview(task.Items, task.Template)
	return s.saveTask(task)
}

// PreviewNames recomputes suggested names. A non-empty template override is
// stored on the task first. When itemIDs is given only those items are
// refreshed, matching the interactive review flow.
func (s *TaskService) PreviewNames(ctx context.Context, taskID, template string, itemIDs []string) (TaskView, error) {
	task, err := s.mustTask(taskID)
	if err != nil {
		return TaskView{}, err
	}

	if trimmed := strings.TrimSpace(template); trimmed != "" {
		task.Template = trimmed
	}

	targets := idSet(itemIDs)
	if targets == nil {
		naming.ApplyNamePreview(task.Items, task.Template)
	} else {
		subset := make([]*invoice.Item, 0, len(targets))
		for _, item := range task.Items {
			if _, ok := targets[item.ID]; ok {
				subset = append(subset, item)
			}
		}
		naming.ApplyNamePreview(subset, task.Template)
		for _, item := range subset {
			item.Touch()
		}
	}
	return s.saveTask(task)
}

// BuildPlan computes the rename plan for the targeted items and records each
// decision (action, conflict type) back on the owning item. The plan itself
// is never persisted.
func (s *TaskService) BuildPlan(ctx context.Context, taskID string, itemIDs []string, dryRun bool) (PlanResponse, error) {
	task, err := s.mustTask(taskID)
	if err != nil {
		return PlanResponse{}, err
	}

	plan := renamer.BuildRenamePlan(task.Items, idSet(itemIDs))
	for _, row := range plan {
		if item := task.Item(row.ItemID); item != nil {
			item.Action = row.Action
			item.ConflictType = row.ConflictType
			item.Touch()
		}
	}
	if _, err := s.saveTask(task); err != nil {
		return PlanResponse{}, err
	}
	return PlanResponse{TaskID: task.ID, DryRun: dryRun, Plan: FromPlan(plan)}, nil
}

// CommitRename builds a fresh plan for the targeted items, executes it, and
// applies the per-item results. Successful renames update the item's source
// path and old name so subsequent plans start from the new location.
func (s *TaskService) CommitRename(ctx context.Context, taskID string, itemIDs []string) (CommitResponse, error) {
	task, err := s.mustTask(taskID)
	if err != nil {
		return CommitResponse{}, err
	}

	plan := renamer.BuildRenamePlan(task.Items, idSet(itemIDs))
	results := renamer.ExecuteRenamePlan(plan)
	applyResults(task, results)

	if _, err := s.saveTask(task); err != nil {
		return CommitResponse{}, err
	}
	logging.WithContext(services.WithTaskID(ctx, task.ID), s.logger).Info("rename committed",
		logging.Args(logging.Int("results", len(results)))...)
	return CommitResponse{TaskID: task.ID, Results: FromResults(results)}, nil
}

// SyncResults applies externally produced commit results to the stored items
// without touching the local filesystem. Results for unknown items are
// ignored.
func (s *TaskService) SyncResults(ctx context.Context, taskID string, results []CommitResultView) (CommitResponse, error) {
	task, err := s.mustTask(taskID)
	if err != nil {
		return CommitResponse{}, err
	}

	domain := make([]invoice.CommitResult, 0, len(results))
	for _, view := range results {
		domain = append(domain, ToResult(view))
	}
	applyResults(task, domain)

	if _, err := s.saveTask(task); err != nil {
		return CommitResponse{}, err
	}
	return CommitResponse{TaskID: task.ID, Results: results}, nil
}

// SyncItems bulk-applies externally edited date, amount, and category values,
// then refreshes name previews for the whole task. Unknown item ids are
// ignored. Values are taken as given, so an empty field clears the item's.
func (s *TaskService) SyncItems(ctx context.Context, taskID string, patches []ItemSyncPatch) (TaskView, error) {
	task, err := s.mustTask(taskID)
	if err != nil {
		return TaskView{}, err
	}
	if len(patches) == 0 {
		return s.saveTask(task)
	}

	for _, patch := range patches {
		item := task.Item(patch.ItemID)
		if item == nil {
			continue
		}
		item.InvoiceDate = patch.InvoiceDate
		item.Amount = patch.Amount
		item.Category = patch.Category
		item.Touch()
	}

	naming.ApplyNamePreview(task.Items, task.Template)
	return s.saveTask(task)
}

// PatchItem applies a partial update to one item. Changes to fields feeding
// filename synthesis re-run name previews for the whole task.
func (s *TaskService) PatchItem(ctx context.Context, taskID, itemID string, patch ItemPatch) (TaskView, error) {
	task, err := s.mustTask(taskID)
	if err != nil {
		return TaskView{}, err
	}
	item := task.Item(itemID)
	if item == nil {
		return TaskView{}, services.Wrap(services.ErrNotFound, "api", "patch item", itemID, nil)
	}

	previewDirty := false
	if patch.InvoiceDate != nil {
		item.InvoiceDate = *patch.InvoiceDate
		previewDirty = true
	}
	if patch.ItemName != nil {
		item.ItemName = *patch.ItemName
		previewDirty = true
	}
	if patch.Amount != nil {
		item.Amount = *patch.Amount
		previewDirty = true
	}
	if patch.Category != nil {
		item.Category = *patch.Category
		previewDirty = true
	}
	if patch.VendorName != nil {
		item.VendorName = *patch.VendorName
	}
	if patch.ManualName != nil {
		item.ManualName = *patch.ManualName
		previewDirty = true
	}
	if patch.Selected != nil {
		item.Selected = *patch.Selected
	}
	item.Touch()

	if previewDirty {
		naming.ApplyNamePreview(task.Items, task.Template)
	}
	return s.saveTask(task)
}

// RemoveItems drops the given items from the task and refreshes previews so
// duplicate-group suffixes reflect the remaining membership.
func (s *TaskService) RemoveItems(ctx context.Context, taskID string, itemIDs []string) (TaskView, error) {
	task, err := s.mustTask(taskID)
	if err != nil {
		return TaskView{}, err
	}
	if len(itemIDs) == 0 {
		return s.saveTask(task)
	}

	targets := idSet(itemIDs)
	kept := task.Items[:0]
	for _, item := range task.Items {
		if _, ok := targets[item.ID]; ok {
			continue
		}
		kept = append(kept, item)
	}
	task.Items = kept

	naming.ApplyNamePreview(task.Items, task.Template)
	for _, item := range task.Items {
		item.Touch()
	}
	return s.saveTask(task)
}

// ClearItems removes every item from the task.
func (s *TaskService) ClearItems(ctx context.Context, taskID string) (TaskView, error) {
	task, err := s.mustTask(taskID)
	if err != nil {
		return TaskView{}, err
	}
	task.Items = nil
	return s.saveTask(task)
}

// Settings returns the current runtime settings.
func (s *TaskService) Settings(ctx context.Context) SettingsView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return settingsView(s.cfg)
}

// UpdateSettings merges the patch into the live configuration, normalizes the
// filename template, and persists the result when a config path is known.
func (s *TaskService) UpdateSettings(ctx context.Context, patch SettingsPatch) (SettingsView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.SiliconFlowBaseURL != nil {
		s.cfg.SiliconFlow.BaseURL = strings.TrimSpace(*patch.SiliconFlowBaseURL)
	}
	if patch.SiliconFlowModel != nil {
		s.cfg.SiliconFlow.Model = strings.TrimSpace(*patch.SiliconFlowModel)
	}
	if len(patch.SiliconFlowModels) > 0 {
		models := make([]string, 0, len(patch.SiliconFlowModels))
		for _, model := range patch.SiliconFlowModels {
			if trimmed := strings.TrimSpace(model); trimmed != "" {
				models = append(models, trimmed)
			}
		}
		if len(models) > 0 {
			s.cfg.SiliconFlow.Models = models
		}
	}
	if patch.SiliconFlowAPIKey != nil {
		s.cfg.SiliconFlow.APIKey = strings.TrimSpace(*patch.SiliconFlowAPIKey)
	}
	if patch.FilenameTemplate != nil {
		s.cfg.Naming.Template = config.NormalizeTemplate(*patch.FilenameTemplate)
	}
	if patch.CategoryMapping != nil {
		categories := categoriesFromMapping(patch.CategoryMapping)
		probe := *s.cfg
		probe.Categories = categories
		if err := probe.Validate(); err != nil {
			return SettingsView{}, services.Wrap(services.ErrValidation, "api", "update settings", "category mapping", err)
		}
		s.cfg.Categories = categories
	}

	if s.cfgPath != "" {
		if err := s.cfg.Save(s.cfgPath); err != nil {
			return SettingsView{}, err
		}
	}
	return settingsView(s.cfg), nil
}

// Health reports daemon readiness together with the active model settings.
func (s *TaskService) Health(ctx context.Context, now string) HealthView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HealthView{
		Status:          "ok",
		Time:            now,
		CloudConfigured: strings.TrimSpace(s.cfg.SiliconFlow.APIKey) != "",
		Model:           s.cfg.SiliconFlow.Model,
		BaseURL:         s.cfg.SiliconFlow.BaseURL,
	}
}

func settingsView(cfg *config.Config) SettingsView {
	mapping := make(map[string][]string, len(cfg.Categories))
	for _, rule := range cfg.Categories {
		keywords := make([]string, len(rule.Keywords))
		copy(keywords, rule.Keywords)
		mapping[rule.Label] = keywords
	}
	models := make([]string, len(cfg.SiliconFlow.Models))
	copy(models, cfg.SiliconFlow.Models)
	return SettingsView{
		SiliconFlowBaseURL: cfg.SiliconFlow.BaseURL,
		SiliconFlowModel:   cfg.SiliconFlow.Model,
		SiliconFlowModels:  models,
		APIKeyConfigured:   strings.TrimSpace(cfg.SiliconFlow.APIKey) != "",
		FilenameTemplate:   cfg.Naming.Template,
		CategoryMapping:    mapping,
	}
}

// categoriesFromMapping converts a label-to-keywords map into ordered rules.
// Labels sort lexicographically so tie-breaking stays deterministic across
// requests.
func categoriesFromMapping(mapping map[string][]string) []config.Category {
	labels := make([]string, 0, len(mapping))
	for label := range mapping {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	sort.Strings(labels)

	categories := make([]config.Category, 0, len(labels))
	for _, label := range labels {
		keywords := make([]string, 0, len(mapping[label]))
		for _, keyword := range mapping[label] {
			if trimmed := strings.TrimSpace(keyword); trimmed != "" {
				keywords = append(keywords, trimmed)
			}
		}
		categories = append(categories, config.Category{Label: label, Keywords: keywords})
	}
	return categories
}

func applyResults(task *invoice.Task, results []invoice.CommitResult) {
	for _, result := range results {
		item := task.Item(result.ItemID)
		if item == nil {
			continue
		}
		item.Result = result.Result
		item.ResultMessage = result.Message
		if result.Result == invoice.ResultRenamed {
			item.SourcePath = result.TargetPath
			item.OldName = targetBase(result.TargetPath)
		}
		item.Touch()
	}
}

func idSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
