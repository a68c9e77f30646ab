package practices

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/margin-app/margin/internal/models"
)

//go:embed practices.seed.json
var seedJSON []byte

type seedPractice struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Instruction     string `json:"instruction"`
	Mode            string `json:"mode"`
	Difficulty      int    `json:"difficulty"`
	DurationSeconds int    `json:"duration_seconds"`
	ContraNotes     string `json:"contra_notes"`
}

// Seed upserts the embedded practice catalogue. Idempotent: safe to call on
// every startup.
func Seed(ctx context.Context, repo Repository) (int, error) {
	var seed []seedPractice
	if err := json.Unmarshal(seedJSON, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse practice seed: %w", err)
	}

	now := time.Now()
	for _, sp := range seed {
		p := &models.Practice{
			ID:              sp.ID,
			Title:           sp.Title,
			Instruction:     sp.Instruction,
			Mode:            models.PracticeMode(sp.Mode),
			Difficulty:      sp.Difficulty,
			DurationSeconds: sp.DurationSeconds,
			ContraNotes:     sp.ContraNotes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return 0, err
		}
	}
	return len(seed), nil
}
