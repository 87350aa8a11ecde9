package api_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"fapiao/internal/api"
	"fapiao/internal/config"
	"fapiao/internal/invoice"
	"fapiao/internal/services"
	"fapiao/internal/testsupport"
)

type stubRecognizer struct {
	date     string
	amount   string
	itemName string
	calls    int
}

func (r *stubRecognizer) RecognizeItem(ctx context.Context, item *invoice.Item) {
	r.calls++
	item.InvoiceDate = r.date
	item.Amount = r.amount
	item.ItemName = r.itemName
	item.Category = "餐饮"
	item.Status = invoice.StatusOK
	item.OverallConfidence = 0.92
	item.Touch()
}

func newService(t *testing.T) (*api.TaskService, *stubRecognizer) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t)
	service := api.NewTaskService(store, cfg, "", nil)
	recognizer := &stubRecognizer{date: "2025-01-05", amount: "23.31", itemName: "工作餐"}
	service.SetRecognizerFactory(func(cfg *config.Config, logger *slog.Logger) api.Recognizer {
		return recognizer
	})
	return service, recognizer
}

func importTask(t *testing.T, service *api.TaskService, dir string, names ...string) api.TaskView {
	t.Helper()
	testsupport.WriteInvoiceFiles(t, dir, names...)
	view, err := service.ImportTask(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("ImportTask returned error: %v", err)
	}
	return view
}

func TestImportTaskCreatesPendingItems(t *testing.T) {
	service, _ := newService(t)
	view := importTask(t, service, t.TempDir(), "a.pdf", "b.png")

	if view.Summary.Total != 2 || view.Summary.Pending != 2 {
		t.Fatalf("unexpected summary: %+v", view.Summary)
	}
	if view.Template != "{date}-{category}-{amount}" {
		t.Fatalf("unexpected template: %q", view.Template)
	}
	for _, item := range view.Items {
		if item.Status != "pending" || !item.Selected {
			t.Fatalf("unexpected item state: %+v", item)
		}
	}
}

func TestImportTaskRejectsEmptyScan(t *testing.T) {
	service, _ := newService(t)
	_, err := service.ImportTask(context.Background(), []string{t.TempDir()})
	if err == nil {
		t.Fatal("expected error for empty import")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetTaskUnknownID(t *testing.T) {
	service, _ := newService(t)
	_, err := service.GetTask(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecognizeAppliesPreview(t *testing.T) {
	service, recognizer := newService(t)
	view := importTask(t, service, t.TempDir(), "invoice.pdf")

	updated, err := service.Recognize(context.Background(), view.ID, nil, "")
	if err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}
	if recognizer.calls != 1 {
		t.Fatalf("expected 1 recognizer call, got %d", recognizer.calls)
	}
	item := updated.Items[0]
	if item.Status != "ok" {
		t.Fatalf("unexpected status: %q", item.Status)
	}
	if item.SuggestedName != "20250105-餐饮-23.31元.pdf" {
		t.Fatalf("unexpected suggested name: %q", item.SuggestedName)
	}
	if updated.Summary.OK != 1 {
		t.Fatalf("unexpected summary: %+v", updated.Summary)
	}
}

func TestRecognizeTargetsSubset(t *testing.T) {
	service, recognizer := newService(t)
	view := importTask(t, service, t.TempDir(), "a.pdf", "b.pdf")

	updated, err := service.Recognize(context.Background(), view.ID, []string{view.Items[0].ID}, "")
	if err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}
	if recognizer.calls != 1 {
		t.Fatalf("expected single recognizer call, got %d", recognizer.calls)
	}
	if updated.Items[1].Status != "pending" {
		t.Fatalf("untargeted item should stay pending, got %q", updated.Items[1].Status)
	}
	if updated.Items[1].Action != "manual_edit_required" {
		t.Fatalf("pending item should be forced to manual edit, got %q", updated.Items[1].Action)
	}
}

func TestPreviewNamesTemplateOverride(t *testing.T) {
	service, _ := newService(t)
	view := importTask(t, service, t.TempDir(), "invoice.pdf")
	if _, err := service.Recognize(context.Background(), view.ID, nil, ""); err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}

	updated, err := service.PreviewNames(context.Background(), view.ID, "{amount}-{date}", nil)
	if err != nil {
		t.Fatalf("PreviewNames returned error: %v", err)
	}
	if updated.Template != "{amount}-{date}" {
		t.Fatalf("template not stored: %q", updated.Template)
	}
	if updated.Items[0].SuggestedName != "23.31元-20250105.pdf" {
		t.Fatalf("unexpected suggested name: %q", updated.Items[0].SuggestedName)
	}
}

func TestBuildPlanRecordsDecisions(t *testing.T) {
	service, _ := newService(t)
	view := importTask(t, service, t.TempDir(), "invoice.pdf")
	if _, err := service.Recognize(context.Background(), view.ID, nil, ""); err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}

	plan, err := service.BuildPlan(context.Background(), view.ID, nil, true)
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}
	if !plan.DryRun {
		t.Fatal("expected dry run flag to round-trip")
	}
	if len(plan.Plan) != 1 || plan.Plan[0].Action != "rename" {
		t.Fatalf("unexpected plan: %+v", plan.Plan)
	}

	stored, err := service.GetTask(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	if stored.Items[0].Action != "rename" {
		t.Fatalf("plan decision not recorded on item: %+v", stored.Items[0])
	}
	if stored.Summary.RenameReady != 1 {
		t.Fatalf("unexpected summary: %+v", stored.Summary)
	}
}

func TestCommitRenameMovesFileAndUpdatesItem(t *testing.T) {
	service, _ := newService(t)
	dir := t.TempDir()
	view := importTask(t, service, dir, "invoice.pdf")
	if _, err := service.Recognize(context.Background(), view.ID, nil, ""); err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}

	commit, err := service.CommitRename(context.Background(), view.ID, nil)
	if err != nil {
		t.Fatalf("CommitRename returned error: %v", err)
	}
	if len(commit.Results) != 1 || commit.Results[0].Result != "renamed" {
		t.Fatalf("unexpected results: %+v", commit.Results)
	}

	target := filepath.Join(dir, "20250105-餐饮-23.31元.pdf")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected renamed file at %q: %v", target, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "invoice.pdf")); !os.IsNotExist(err) {
		t.Fatalf("expected original file to be gone, got %v", err)
	}

	stored, err := service.GetTask(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	item := stored.Items[0]
	if item.SourcePath != target || item.OldName != "20250105-餐饮-23.31元.pdf" {
		t.Fatalf("item not updated after rename: %+v", item)
	}
	if stored.Summary.Renamed != 1 {
		t.Fatalf("unexpected summary: %+v", stored.Summary)
	}
}

func TestSyncResultsAppliesWithoutFilesystem(t *testing.T) {
	service, _ := newService(t)
	view := importTask(t, service, t.TempDir(), "invoice.pdf")

	result := api.CommitResultView{
		ItemID:     view.Items[0].ID,
		SourcePath: view.Items[0].SourcePath,
		TargetPath: filepath.Join(filepath.Dir(view.Items[0].SourcePath), "renamed.pdf"),
		Result:     "renamed",
	}
	if _, err := service.SyncResults(context.Background(), view.ID, []api.CommitResultView{result, {ItemID: "ghost", Result: "failed"}}); err != nil {
		t.Fatalf("SyncResults returned error: %v", err)
	}

	stored, err := service.GetTask(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	item := stored.Items[0]
	if item.Result != "renamed" || item.OldName != "renamed.pdf" {
		t.Fatalf("sync not applied: %+v", item)
	}
	if _, err := os.Stat(result.SourcePath); err != nil {
		t.Fatalf("sync must not touch the filesystem: %v", err)
	}
}

func TestPatchItemManualNameRefreshesPreview(t *testing.T) {
	service, _ := newService(t)
	view := importTask(t, service, t.TempDir(), "invoice.pdf")
	if _, err := service.Recognize(context.Background(), view.ID, nil, ""); err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}

	manual := "手工名称"
	updated, err := service.PatchItem(context.Background(), view.ID, view.Items[0].ID, api.ItemPatch{ManualName: &manual})
	if err != nil {
		t.Fatalf("PatchItem returned error: %v", err)
	}
	if updated.Items[0].ManualName != manual {
		t.Fatalf("manual name not stored: %+v", updated.Items[0])
	}

	unknown := "x"
	if _, err := service.PatchItem(context.Background(), view.ID, "ghost", api.ItemPatch{ManualName: &unknown}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown item, got %v", err)
	}
}

func TestRemoveItemsRecomputesGroupSuffixes(t *testing.T) {
	service, _ := newService(t)
	view := importTask(t, service, t.TempDir(), "a.pdf", "b.pdf")
	if _, err := service.Recognize(context.Background(), view.ID, nil, ""); err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}

	stored, err := service.GetTask(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	if stored.Items[1].SuggestedName != "20250105-餐饮2-23.31元.pdf" {
		t.Fatalf("expected group suffix before removal, got %q", stored.Items[1].SuggestedName)
	}

	updated, err := service.RemoveItems(context.Background(), view.ID, []string{stored.Items[0].ID})
	if err != nil {
		t.Fatalf("RemoveItems returned error: %v", err)
	}
	if len(updated.Items) != 1 {
		t.Fatalf("expected 1 remaining item, got %d", len(updated.Items))
	}
	if updated.Items[0].SuggestedName != "20250105-餐饮-23.31元.pdf" {
		t.Fatalf("suffix should drop when group shrinks, got %q", updated.Items[0].SuggestedName)
	}
}

func TestClearItems(t *testing.T) {
	service, _ := newService(t)
	view := importTask(t, service, t.TempDir(), "a.pdf")

	updated, err := service.ClearItems(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("ClearItems returned error: %v", err)
	}
	if len(updated.Items) != 0 || updated.Summary.Total != 0 {
		t.Fatalf("expected empty task, got %+v", updated.Summary)
	}
}

func TestSettingsUpdateNormalizesTemplate(t *testing.T) {
	service, _ := newService(t)

	template := "{date}-{amount}{ext}-"
	updated, err := service.UpdateSettings(context.Background(), api.SettingsPatch{FilenameTemplate: &template})
	if err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}
	if updated.FilenameTemplate != "{date}-{amount}" {
		t.Fatalf("template not normalized: %q", updated.FilenameTemplate)
	}

	current := service.Settings(context.Background())
	if current.FilenameTemplate != "{date}-{amount}" {
		t.Fatalf("settings not retained: %q", current.FilenameTemplate)
	}
	if !current.APIKeyConfigured {
		t.Fatal("expected API key configured in test config")
	}
}

func TestSettingsUpdateRejectsReservedLabel(t *testing.T) {
	service, _ := newService(t)

	_, err := service.UpdateSettings(context.Background(), api.SettingsPatch{
		CategoryMapping: map[string][]string{"其他": {"x"}},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSettingsUpdatePersistsToDisk(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	service := api.NewTaskService(testsupport.NewStore(t), cfg, cfgPath, nil)

	key := "new-key"
	if _, err := service.UpdateSettings(context.Background(), api.SettingsPatch{SiliconFlowAPIKey: &key}); err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}

	loaded, _, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected persisted config file")
	}
	if loaded.SiliconFlow.APIKey != "new-key" {
		t.Fatalf("expected persisted key, got %q", loaded.SiliconFlow.APIKey)
	}
}

func TestHealthReflectsConfiguration(t *testing.T) {
	service, _ := newService(t)
	health := service.Health(context.Background(), "2026-01-01T00:00:00Z")
	if health.Status != "ok" || !health.CloudConfigured {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.Model == "" || health.BaseURL == "" {
		t.Fatalf("expected model and base url, got %+v", health)
	}
}

func TestSyncItemsAppliesFieldsAndRefreshesPreview(t *testing.T) {
	service, _ := newService(t)
	view := importTask(t, service, t.TempDir(), "a.pdf", "b.pdf")
	if _, err := service.Recognize(context.Background(), view.ID, nil, ""); err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}

	patches := []api.ItemSyncPatch{
		{ItemID: view.Items[1].ID, InvoiceDate: "2025-02-01", Amount: "88.00", Category: "住宿"},
		{ItemID: "ghost", InvoiceDate: "2025-09-09"},
	}
	updated, err := service.SyncItems(context.Background(), view.ID, patches)
	if err != nil {
		t.Fatalf("SyncItems returned error: %v", err)
	}
	if len(updated.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(updated.Items))
	}
	if updated.Items[1].SuggestedName != "20250201-住宿-88.00元.pdf" {
		t.Fatalf("synced item preview = %q", updated.Items[1].SuggestedName)
	}
	// the synced item left the group, so the first loses its suffix
	if updated.Items[0].SuggestedName != "20250105-餐饮-23.31元.pdf" {
		t.Fatalf("remaining item preview = %q", updated.Items[0].SuggestedName)
	}
}

func TestSyncItemsEmptyPatchListKeepsTask(t *testing.T) {
	service, _ := newService(t)
	view := importTask(t, service, t.TempDir(), "a.pdf")

	updated, err := service.SyncItems(context.Background(), view.ID, nil)
	if err != nil {
		t.Fatalf("SyncItems returned error: %v", err)
	}
	if len(updated.Items) != 1 || updated.Items[0].Status != "pending" {
		t.Fatalf("task mutated by empty sync: %+v", updated.Items)
	}
}

func TestRecognizeSessionKeyOverridesConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := api.NewTaskService(testsupport.NewStore(t), cfg, "", nil)
	recognizer := &stubRecognizer{date: "2025-01-05", amount: "23.31", itemName: "工作餐"}
	var keys []string
	service.SetRecognizerFactory(func(cfg *config.Config, logger *slog.Logger) api.Recognizer {
		keys = append(keys, cfg.SiliconFlow.APIKey)
		return recognizer
	})
	view := importTask(t, service, t.TempDir(), "a.pdf")

	if _, err := service.Recognize(context.Background(), view.ID, nil, " session-key "); err != nil {
		t.Fatalf("Recognize with override returned error: %v", err)
	}
	if _, err := service.Recognize(context.Background(), view.ID, nil, ""); err != nil {
		t.Fatalf("Recognize without override returned error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "session-key" || keys[1] != "test-key" {
		t.Fatalf("recognizer keys = %v", keys)
	}
}

func TestSettingsUpdateAcceptsEmptyKeywordList(t *testing.T) {
	service, _ := newService(t)

	updated, err := service.UpdateSettings(context.Background(), api.SettingsPatch{
		CategoryMapping: map[string][]string{"餐饮": {"餐饮"}, "杂项": {}},
	})
	if err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}
	keywords, ok := updated.CategoryMapping["杂项"]
	if !ok || len(keywords) != 0 {
		t.Fatalf("keywordless category not kept: %+v", updated.CategoryMapping)
	}
}
