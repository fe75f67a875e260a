package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mastery-quiz-service/internal/domain"
)

const sampleQuizID = "sample"

// sampleQuiz is served when no Postgres is configured and played by default.
func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: sampleQuizID,
		Questions: []domain.Question{
			{
				ID:                 "q1",
				Text:               "Which word is a verb?",
				Options:            []string{"quickly", "run", "blue"},
				CorrectOptionIndex: 1,
				Explanation:        "\"run\" names an action.",
				BaseReward:         10,
				TopicID:            "parts-of-speech",
			},
			{
				ID:                 "q2",
				Text:               "Pick the plural of \"mouse\".",
				Options:            []string{"mouses", "mice", "meese"},
				CorrectOptionIndex: 1,
				BaseReward:         10,
				TopicID:            "plurals",
			},
			{
				ID:                 "q3",
				Text:               "What is the past tense of \"go\"?",
				Options:            []string{"went", "goed", "gone"},
				CorrectOptionIndex: 0,
				Explanation:        "\"gone\" is the past participle.",
				BaseReward:         10,
				TopicID:            "tenses",
			},
		},
	}
}

// loadQuizFile reads a quiz from YAML. The file name stands in for a missing id.
func loadQuizFile(path string) (domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, err
	}
	var quiz domain.Quiz
	if err := yaml.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse quiz %s: %w", path, err)
	}
	if quiz.ID == "" {
		quiz.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return quiz, nil
}
