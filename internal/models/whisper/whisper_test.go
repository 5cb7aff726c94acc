package whisper

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetModelsDir(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		want := t.TempDir()
		t.Setenv(EnvModelsDir, want)

		got, err := GetModelsDir()
		if err != nil {
			t.Fatalf("GetModelsDir() error = %v", err)
		}
		if got != want {
			t.Errorf("GetModelsDir() = %s, want %s", got, want)
		}
	})

	t.Run("xdg data home", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv(EnvModelsDir, "")
		t.Setenv("XDG_DATA_HOME", base)

		got, err := GetModelsDir()
		if err != nil {
			t.Fatalf("GetModelsDir() error = %v", err)
		}
		if got != filepath.Join(base, "webwhisper", "models", "whisper") {
			t.Errorf("GetModelsDir() = %s", got)
		}
	})
}

func TestGetModelPath(t *testing.T) {
	t.Setenv(EnvModelsDir, "/models")

	tests := []struct {
		modelID string
		want    string
	}{
		{"base.en", filepath.Join("/models", "ggml-base.en.bin")},
		{"large-v3-turbo", filepath.Join("/models", "ggml-large-v3-turbo.bin")},
		{"large-v3", filepath.Join("/models", "ggml-large-v3.bin")},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			if got := GetModelPath(tt.modelID); got != tt.want {
				t.Errorf("GetModelPath(%q) = %s, want %s", tt.modelID, got, tt.want)
			}
		})
	}
}

func TestGetDownloadURL(t *testing.T) {
	tests := []struct {
		modelID string
		wantURL string
	}{
		{"medium", "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin"},
		{"large-v3-turbo", "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo.bin"},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			if got := GetDownloadURL(tt.modelID); got != tt.wantURL {
				t.Errorf("GetDownloadURL(%q) = %s, want %s", tt.modelID, got, tt.wantURL)
			}
		})
	}
}

func TestTierModelsPresent(t *testing.T) {
	// model names used by the generic tier catalog
	for _, id := range []string{"large-v3", "large-v3-turbo", "medium", "small"} {
		info := GetModel(id)
		if info == nil {
			t.Errorf("GetModel(%q) = nil", id)
			continue
		}
		if !info.Multilingual {
			t.Errorf("%s should be multilingual", id)
		}
	}
	if GetModel("unknown") != nil {
		t.Error("GetModel(unknown) should be nil")
	}
}

func TestListModels(t *testing.T) {
	list := ListModels()
	if len(list) != 10 {
		t.Errorf("ListModels() returned %d models, want 10", len(list))
	}
	for _, m := range list {
		if m.ID == "" || m.Name == "" || m.Filename == "" || m.Size == "" || m.SizeBytes <= 0 {
			t.Errorf("model %+v has missing fields", m)
		}
	}

	list[0].ID = "changed"
	if ListModels()[0].ID == "changed" {
		t.Error("ListModels() should return a copy")
	}

	for _, m := range ListMultilingualModels() {
		if !m.Multilingual || strings.HasSuffix(m.ID, ".en") {
			t.Errorf("ListMultilingualModels() returned %s", m.ID)
		}
	}
}

func TestInstalledLifecycle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvModelsDir, dir)

	if IsInstalled("small") {
		t.Fatal("small should not be installed in an empty dir")
	}
	if _, err := GetInstalledPath("small"); err == nil || !strings.Contains(err.Error(), "not installed") {
		t.Errorf("GetInstalledPath error = %v, want not installed", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "ggml-small.bin"), []byte("weights"), 0644); err != nil {
		t.Fatal(err)
	}
	if !IsInstalled("small") {
		t.Fatal("small should be installed")
	}
	if got := ListInstalled(); len(got) != 1 || got[0] != "small" {
		t.Errorf("ListInstalled() = %v", got)
	}

	if err := Remove("small"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if IsInstalled("small") {
		t.Error("small should be gone after Remove")
	}
	if err := Remove("small"); err == nil || !strings.Contains(err.Error(), "not installed") {
		t.Errorf("second Remove error = %v, want not installed", err)
	}
}

func TestRemove_UnknownModel(t *testing.T) {
	err := Remove("unknown-model")
	if err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Errorf("Remove error = %v, want unknown model", err)
	}
}

func TestDownload_UnknownModel(t *testing.T) {
	err := Download(context.Background(), "unknown-model", nil)
	if err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Errorf("Download error = %v, want unknown model", err)
	}
}

func TestDownload_Cancelled(t *testing.T) {
	t.Setenv(EnvModelsDir, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Download(ctx, "tiny", nil); err == nil {
		t.Error("Download with cancelled context = nil, want error")
	}
}
