package database

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	settingSurveyTitle       = "survey_title"
	settingGateQuestionCount = "gate_question_count"
	settingGateQuestions     = "gate_questions"
	settingHintsContent      = "hints_content"
	settingFooterContent     = "footer_content"
)

func defaultSettings() Settings {
	return Settings{
		SurveyTitle:       "Omas 90. Geburtstag",
		GateQuestionCount: 1,
		GateQuestions: []GateQuestion{
			{Question: "Wie lautet der Vorname von Oma?", Answer: "ilse"},
		},
		HintsContent:  "",
		FooterContent: "",
	}
}

// GetSettings returns the stored settings merged with defaults for any
// missing key. The gate question list is padded with the first default pair
// when it is shorter than the configured count.
func (db *DB) GetSettings() (Settings, error) {
	defaults := defaultSettings()

	rows, err := db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	defer rows.Close()

	stored := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, fmt.Errorf("failed to scan setting: %w", err)
		}
		stored[key] = value
	}
	if err := rows.Err(); err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	settings := defaults

	if title, ok := stored[settingSurveyTitle]; ok {
		settings.SurveyTitle = title
	}
	if countStr, ok := stored[settingGateQuestionCount]; ok {
		if count, err := strconv.Atoi(countStr); err == nil && count > 1 {
			settings.GateQuestionCount = count
		} else {
			settings.GateQuestionCount = 1
		}
	}
	if questionsJSON, ok := stored[settingGateQuestions]; ok {
		var questions []GateQuestion
		if err := json.Unmarshal([]byte(questionsJSON), &questions); err == nil && len(questions) > 0 {
			settings.GateQuestions = questions
		}
	}
	if hints, ok := stored[settingHintsContent]; ok {
		settings.HintsContent = hints
	}
	if footer, ok := stored[settingFooterContent]; ok {
		settings.FooterContent = footer
	}

	// Pad with the default pair so there is always a question per slot.
	for len(settings.GateQuestions) < settings.GateQuestionCount {
		settings.GateQuestions = append(settings.GateQuestions, defaults.GateQuestions[0])
	}

	return settings, nil
}

// UpdateSettings persists the five settings rows in one transaction. The
// caller clamps questionCount to [1,3] before calling.
func (db *DB) UpdateSettings(title string, questionCount int, questions []GateQuestion, hints, footer string) error {
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("failed to encode gate questions: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pairs := []struct {
		key   string
		value string
	}{
		{settingSurveyTitle, title},
		{settingGateQuestionCount, strconv.Itoa(questionCount)},
		{settingGateQuestions, string(questionsJSON)},
		{settingHintsContent, hints},
		{settingFooterContent, footer},
	}

	for _, pair := range pairs {
		if _, err := tx.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			pair.key, pair.value,
		); err != nil {
			return fmt.Errorf("failed to store setting %s: %w", pair.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SeedSettings inserts the default settings if no settings rows exist yet.
func (db *DB) SeedSettings() error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count settings: %w", err)
	}

	if count > 0 {
		return nil
	}

	defaults := defaultSettings()
	return db.UpdateSettings(
		defaults.SurveyTitle,
		defaults.GateQuestionCount,
		defaults.GateQuestions,
		defaults.HintsContent,
		defaults.FooterContent,
	)
}
