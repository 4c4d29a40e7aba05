package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reverie-app/reverie-api/internal/domain"
)

// Archive layout: manifest.json at the root, one optional JSON array per
// entity under database/, uploaded media mirrored under files/.
const (
	DatabaseDir = "database"
	FilesDir    = "files"
)

// Entity set names as used in archive filenames and summary counters.
const (
	EntityJournals     = "journals"
	EntityNotes        = "notes"
	EntityJournalNotes = "journalNotes"
	EntityTemplates    = "templates"
	EntityDailyMoods   = "dailyMoods"
	EntityTranscripts  = "transcripts"
	EntityTags         = "tags"
)

// entityNames lists every entity set in dependency order (parents first).
var entityNames = []string{
	EntityJournals,
	EntityNotes,
	EntityJournalNotes,
	EntityTemplates,
	EntityDailyMoods,
	EntityTranscripts,
	EntityTags,
}

// bundle holds the decoded contents of an archive's database/ directory.
type bundle struct {
	Journals     []*domain.Journal
	Notes        []*domain.Note
	JournalNotes []*domain.JournalNote
	Templates    []*domain.Template
	DailyMoods   []*domain.DailyMood
	Transcripts  []*domain.Transcript
	Tags         []*domain.Tag
}

func (b *bundle) total() int {
	return len(b.Journals) + len(b.Notes) + len(b.JournalNotes) +
		len(b.Templates) + len(b.DailyMoods) + len(b.Transcripts) + len(b.Tags)
}

// loadEntityFile decodes database/<name>.json into a slice. A missing
// file means the entity set is empty, not an error.
func loadEntityFile[T any](extractDir, name string) ([]*T, error) {
	path := filepath.Join(extractDir, DatabaseDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s.json: %w", name, err)
	}

	var records []*T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s.json: %w", name, err)
	}
	return records, nil
}

// loadBundle reads every entity file from the extracted archive.
func loadBundle(extractDir string) (*bundle, error) {
	b := &bundle{}
	var err error

	if b.Journals, err = loadEntityFile[domain.Journal](extractDir, EntityJournals); err != nil {
		return nil, err
	}
	if b.Notes, err = loadEntityFile[domain.Note](extractDir, EntityNotes); err != nil {
		return nil, err
	}
	if b.JournalNotes, err = loadEntityFile[domain.JournalNote](extractDir, EntityJournalNotes); err != nil {
		return nil, err
	}
	if b.Templates, err = loadEntityFile[domain.Template](extractDir, EntityTemplates); err != nil {
		return nil, err
	}
	if b.DailyMoods, err = loadEntityFile[domain.DailyMood](extractDir, EntityDailyMoods); err != nil {
		return nil, err
	}
	if b.Transcripts, err = loadEntityFile[domain.Transcript](extractDir, EntityTranscripts); err != nil {
		return nil, err
	}
	if b.Tags, err = loadEntityFile[domain.Tag](extractDir, EntityTags); err != nil {
		return nil, err
	}

	return b, nil
}
