package taskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pageSize bounds one criteria fetch; tables run well past a thousand rows.
const pageSize = 1000

// Defaults for criteria columns that arrive NULL or blank.
const (
	defaultCriterionType = "Unknown"
	defaultHurdleTag     = "Not"
)

// Connect opens the task database.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("taskstore: postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("taskstore: failed to connect to postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the criteria and tasks tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&CriterionRow{}, &TaskRow{})
}

// TaskSeed pairs a task with the prompt its criteria rows carry.
type TaskSeed struct {
	TaskID string
	Prompt string
}

// InitSummary counts what InitializeTasks did.
type InitSummary struct {
	Initialized int
	Skipped     int
	Errors      int
}

// Store exposes the task database operations behind the init command.
type Store interface {
	FetchTasks(ctx context.Context, domain string) ([]TaskSeed, error)
	InitializeTasks(ctx context.Context, domain string, seeds []TaskSeed, overwrite bool) (*InitSummary, error)
	CriteriaForTask(ctx context.Context, domain, taskID string) ([]Criterion, error)
	SaveCriteria(ctx context.Context, domain, taskID, prompt string, criteria []Criterion) error
}

// NewStore constructs a store over an open database handle.
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

type store struct {
	db *gorm.DB
}

// FetchTasks pages through every criteria row for domain and collapses them
// to unique tasks, in task id order. The first row with a non-blank prompt
// wins; tasks whose rows never carry a prompt are dropped.
func (s *store) FetchTasks(ctx context.Context, domain string) ([]TaskSeed, error) {
	seen := map[string]bool{}
	var seeds []TaskSeed
	blankPrompts := 0

	for offset := 0; ; offset += pageSize {
		var rows []CriterionRow
		err := s.db.WithContext(ctx).
			Where("domain = ?", domain).
			Order("task_id, criterion_id").
			Offset(offset).
			Limit(pageSize).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("taskstore: fetching criteria page at offset %d: %w", offset, err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			if seen[row.TaskID] {
				continue
			}
			prompt := strings.TrimSpace(row.Prompt)
			if prompt == "" {
				blankPrompts++
				continue
			}
			seen[row.TaskID] = true
			seeds = append(seeds, TaskSeed{TaskID: row.TaskID, Prompt: prompt})
		}

		if len(rows) < pageSize {
			break
		}
	}

	if blankPrompts > 0 {
		slog.Warn("skipped criteria rows with blank prompts", "domain", domain, "rows", blankPrompts)
	}
	slog.Info("fetched tasks from criteria table", "domain", domain, "tasks", len(seeds))
	return seeds, nil
}

// InitializeTasks writes one tasks row per seed. Without overwrite, seeds
// whose task already has a row are skipped; with overwrite, existing rows
// take the new prompt. Row-level write failures are counted and logged so
// one bad row cannot sink a whole seeding pass.
func (s *store) InitializeTasks(ctx context.Context, domain string, seeds []TaskSeed, overwrite bool) (*InitSummary, error) {
	existing := map[string]bool{}
	if !overwrite {
		var ids []string
		err := s.db.WithContext(ctx).
			Model(&TaskRow{}).
			Where("domain = ?", domain).
			Pluck("task_id", &ids).Error
		if err != nil {
			return nil, fmt.Errorf("taskstore: reading existing task ids: %w", err)
		}
		for _, id := range ids {
			existing[id] = true
		}
	}

	summary := &InitSummary{}
	for _, seed := range seeds {
		if existing[seed.TaskID] {
			summary.Skipped++
			continue
		}

		row := TaskRow{Domain: domain, TaskID: seed.TaskID, Prompt: seed.Prompt}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "domain"}, {Name: "task_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"prompt"}),
		}).Create(&row).Error
		if err != nil {
			summary.Errors++
			slog.Error("task row write failed", "task_id", seed.TaskID, "error", err)
			continue
		}
		summary.Initialized++
	}

	slog.Info("task table initialized",
		"domain", domain,
		"initialized", summary.Initialized,
		"skipped", summary.Skipped,
		"errors", summary.Errors)
	return summary, nil
}

// CriteriaForTask returns the ordered criteria for one task. Blank criterion
// types default to Unknown and blank hurdle tags to Not. The ID field is the
// 1-based position after ordering, independent of the stored criterion ids.
func (s *store) CriteriaForTask(ctx context.Context, domain, taskID string) ([]Criterion, error) {
	var rows []CriterionRow
	err := s.db.WithContext(ctx).
		Where("domain = ? AND task_id = ?", domain, taskID).
		Order("criterion_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("taskstore: reading criteria for %s: %w", taskID, err)
	}

	criteria := make([]Criterion, 0, len(rows))
	for _, row := range rows {
		criterionType := strings.TrimSpace(row.CriterionType)
		if criterionType == "" {
			criterionType = defaultCriterionType
		}
		hurdle := strings.TrimSpace(row.HurdleTag)
		if hurdle == "" {
			hurdle = defaultHurdleTag
		}
		criteria = append(criteria, Criterion{
			CriterionID: row.CriterionID,
			ID:          len(criteria) + 1,
			Description: strings.TrimSpace(row.Description),
			Type:        criterionType,
			HurdleTag:   hurdle,
			Grounding:   row.Grounding,
		})
	}
	return criteria, nil
}

// SaveCriteria upserts a task row together with its serialized criteria list.
func (s *store) SaveCriteria(ctx context.Context, domain, taskID, prompt string, criteria []Criterion) error {
	payload, err := json.Marshal(criteria)
	if err != nil {
		return fmt.Errorf("taskstore: encoding criteria for %s: %w", taskID, err)
	}

	row := TaskRow{Domain: domain, TaskID: taskID, Prompt: prompt, Criteria: datatypes.JSON(payload)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "domain"}, {Name: "task_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"prompt", "criteria"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("taskstore: saving criteria for %s: %w", taskID, err)
	}
	return nil
}

// BuildRubric converts a criteria list into the rubric JSON shape task CSVs
// carry, keyed criterion_<id> in list order, so database-seeded tasks grade
// the same way as file-seeded ones.
func BuildRubric(criteria []Criterion) (string, error) {
	if len(criteria) == 0 {
		return "", nil
	}

	rub := orderedmap.New[string, any]()
	for _, c := range criteria {
		rub.Set(fmt.Sprintf("criterion_%d", c.ID), map[string]any{
			"description":     c.Description,
			"criterion_type":  []string{c.Type},
			"hurdle_tag":      c.HurdleTag,
			"grounded_status": c.Grounding,
		})
	}

	out, err := json.Marshal(rub)
	if err != nil {
		return "", fmt.Errorf("taskstore: encoding rubric: %w", err)
	}
	return string(out), nil
}
