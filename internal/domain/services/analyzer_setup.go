package services

import (
	"context"
	"fmt"

	"callguard/internal/config"
	"callguard/internal/domain/services/ai"
	"callguard/internal/infrastructure/database"
	"callguard/internal/infrastructure/database/repository"
	"callguard/pkg/logger"
)

// KeywordSourceFor returns the keyword source selected by cfg. db is only
// used for the postgres source and may be nil otherwise.
func KeywordSourceFor(cfg config.KeywordsConfig, db *database.PostgresDB) (ai.KeywordSource, error) {
	switch cfg.Source {
	case config.KeywordSourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("keyword source %q needs a database connection", cfg.Source)
		}
		return repository.NewKeywordRepository(db.Pool()), nil
	default:
		return ai.FileKeywordSource{Path: cfg.Path}, nil
	}
}

// BuildAnalyzer loads the keyword list, trains the classifier when enabled
// and returns the shared scoring pipeline. Keyword and classifier problems
// are logged and degrade to the default list and keyword-only intent.
func BuildAnalyzer(ctx context.Context, cfg *config.Config, db *database.PostgresDB, log *logger.Logger) *ai.Analyzer {
	src, err := KeywordSourceFor(cfg.Keywords, db)
	if err != nil {
		log.Warn().Err(err).Msg("keyword source unavailable")
	}

	keywords, err := ai.LoadKeywords(ctx, src)
	if err != nil {
		log.Warn().
			Err(err).
			Str("source", cfg.Keywords.Source).
			Strs("keywords", keywords.Terms()).
			Msg("using default keyword list")
	} else {
		log.Info().
			Str("source", cfg.Keywords.Source).
			Int("count", keywords.Len()).
			Msg("keyword list loaded")
	}

	var classifier ai.Classifier
	if cfg.Classifier.Enabled {
		model, err := ai.TrainDefaultClassifier(ai.ClassifierConfig{
			Iterations: cfg.Classifier.Iterations,
			LearnRate:  cfg.Classifier.LearnRate,
		})
		if err != nil {
			log.Warn().Err(err).Msg("classifier training failed, using keyword-only intent")
		} else {
			classifier = model
			log.Info().Int("features", model.VocabularySize()).Msg("intent classifier trained")
		}
	}

	return ai.NewAnalyzer(keywords, classifier, log)
}
