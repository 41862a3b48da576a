// test/e2e/e2e_test.go
//
// Full pipeline test against live services. Requires PostgreSQL and Redis
// (and optionally Elasticsearch) running locally; gated behind E2E_TESTS=1
// so the regular unit test run never touches infrastructure.
package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workers/internal/common/config"
	"scholarship-workers/internal/common/database"
	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/matching/features"
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/training/autotrain"
	"scholarship-workers/internal/training/modelstore"
	"scholarship-workers/internal/training/samplestore"

	checkeligibility "scholarship-workers/internal/workers/matching/check-eligibility"
	predictprobability "scholarship-workers/internal/workers/matching/predict-probability"
	rankrecommendations "scholarship-workers/internal/workers/matching/rank-recommendations"
	validatecriteria "scholarship-workers/internal/workers/matching/validate-criteria"

	queryscholarships "scholarship-workers/internal/workers/data-access/query-scholarships"
	searchscholarships "scholarship-workers/internal/workers/data-access/search-scholarships"

	managemodel "scholarship-workers/internal/workers/training/manage-model"
	recorddecision "scholarship-workers/internal/workers/training/record-decision"
	trainmodel "scholarship-workers/internal/workers/training/train-model"
	trainingstatus "scholarship-workers/internal/workers/training/training-status"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

// testStack bundles the live clients and shared collaborators the way the
// worker manager wires them.
type testStack struct {
	db           *sql.DB
	pg           *database.PostgresClient
	redis        *database.RedisClient
	extractor    *features.Extractor
	models       *modelstore.Store
	samples      *samplestore.Store
	orchestrator *autotrain.Orchestrator
}

func setupStack(t *testing.T) *testStack {
	t.Helper()

	if os.Getenv("E2E_TESTS") == "" {
		t.Skip("set E2E_TESTS=1 to run against live services")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	// Force localhost so the test run never hits a remote environment.
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	require.NoError(t, pg.Ping(context.Background()), "PostgreSQL ping failed")
	t.Cleanup(func() { pg.Close() })

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis client creation failed")
	require.NoError(t, rdb.Ping(context.Background()), "Redis ping failed")
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewTestLogger(t)
	extractor := features.New(features.DefaultConfig())
	store := modelstore.New(pg.DB, log)
	samples := samplestore.New(pg.DB, log)

	// Low thresholds so one test run crosses the retrain boundaries.
	atCfg := autotrain.DefaultConfig()
	atCfg.DecisionsUntilGlobalRetrain = 10
	atCfg.MinSamplesGlobal = 10
	atCfg.MinSamplesScholarship = 5
	atCfg.ScholarshipRetrainInterval = 5

	orchestrator := autotrain.New(atCfg, cfg.Training.Logreg, rdb.Client, samples, store, log)
	t.Cleanup(orchestrator.Wait)

	stack := &testStack{
		db:           pg.DB,
		pg:           pg,
		redis:        rdb,
		extractor:    extractor,
		models:       store,
		samples:      samples,
		orchestrator: orchestrator,
	}
	stack.resetState(t)
	return stack
}

func (s *testStack) resetState(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS students (
			student_id VARCHAR(255) PRIMARY KEY,
			gwa DOUBLE PRECISION,
			annual_family_income DOUBLE PRECISION,
			units_enrolled INTEGER,
			year_level INTEGER,
			college VARCHAR(255),
			course VARCHAR(255),
			province VARCHAR(255),
			st_bracket VARCHAR(50),
			citizenship VARCHAR(100),
			has_other_scholarship BOOLEAN,
			good_moral_certificate BOOLEAN,
			profile_completeness DOUBLE PRECISION DEFAULT 0,
			document_completeness DOUBLE PRECISION DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS scholarships (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			provider VARCHAR(255),
			slots_available INTEGER DEFAULT 0,
			application_count INTEGER DEFAULT 0,
			status VARCHAR(50) DEFAULT 'active',
			criteria JSONB,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS training_samples (
			id VARCHAR(255) PRIMARY KEY,
			scholarship_id VARCHAR(255),
			features JSONB NOT NULL,
			label VARCHAR(50) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ml_models (
			id VARCHAR(255) PRIMARY KEY,
			model_type VARCHAR(50) NOT NULL,
			scholarship_id VARCHAR(255),
			weights JSONB NOT NULL,
			bias DOUBLE PRECISION NOT NULL,
			metrics JSONB,
			feature_importance JSONB,
			sample_count INTEGER,
			trained_at TIMESTAMP,
			is_active BOOLEAN DEFAULT false
		)`,
	}
	for _, q := range ddl {
		_, err := s.db.ExecContext(ctx, q)
		require.NoError(t, err)
	}

	for _, table := range []string{"training_samples", "ml_models", "students", "scholarships"} {
		_, err := s.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", table))
		require.NoError(t, err)
	}

	require.NoError(t, s.redis.Client.FlushDB(ctx).Err())
}

func seedScholarship(t *testing.T, s *testStack, id, name string, criteria string) {
	t.Helper()
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO scholarships (id, name, provider, slots_available, status, criteria)
		VALUES ($1, $2, 'DOST', 50, 'active', $3)`,
		id, name, criteria)
	require.NoError(t, err)
}

func strongProfile(id string) *models.StudentProfile {
	return &models.StudentProfile{
		StudentID:            id,
		GWA:                  floatPtr(1.25),
		AnnualFamilyIncome:   floatPtr(120_000),
		UnitsEnrolled:        intPtr(21),
		YearLevel:            intPtr(3),
		College:              "Engineering",
		Province:             "Laguna",
		Citizenship:          "Filipino",
		HasOtherScholarship:  boolPtr(false),
		GoodMoralCertificate: boolPtr(true),
		ProfileCompleteness:  1,
		DocumentCompleteness: 1,
	}
}

func weakProfile(id string) *models.StudentProfile {
	return &models.StudentProfile{
		StudentID:            id,
		GWA:                  floatPtr(2.9),
		AnnualFamilyIncome:   floatPtr(1_500_000),
		UnitsEnrolled:        intPtr(9),
		YearLevel:            intPtr(1),
		College:              "Engineering",
		Province:             "Laguna",
		Citizenship:          "Filipino",
		HasOtherScholarship:  boolPtr(true),
		GoodMoralCertificate: boolPtr(false),
		ProfileCompleteness:  0.4,
		DocumentCompleteness: 0.2,
	}
}

func testScholarship(id string) *models.Scholarship {
	return &models.Scholarship{
		ID:     id,
		Name:   "Merit Scholarship",
		Status: "active",
		Criteria: models.EligibilityCriteria{
			MaxGWA:    floatPtr(2.5),
			MaxIncome: floatPtr(500_000),
			MinUnits:  intPtr(12),
		},
	}
}

func TestScholarshipPipelineE2E(t *testing.T) {
	stack := setupStack(t)
	log := logger.NewTestLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	scholarship := testScholarship("sch-e2e-1")

	// --- 1. Criteria validation gate ---
	vcHandler := validatecriteria.NewHandler(validatecriteria.LoadConfig(), log)
	vcOut, err := vcHandler.Execute(ctx, &validatecriteria.Input{Criteria: &scholarship.Criteria})
	require.NoError(t, err)
	assert.True(t, vcOut.Valid, "seeded criteria should validate cleanly")

	// --- 2. Eligibility on the rule engine ---
	ceHandler := checkeligibility.NewHandler(checkeligibility.LoadConfig(), log)
	ceOut, err := ceHandler.Execute(ctx, &checkeligibility.Input{
		StudentProfile: strongProfile("stu-strong"),
		Scholarship:    scholarship,
	})
	require.NoError(t, err)
	assert.True(t, ceOut.Passed)

	ceOut, err = ceHandler.Execute(ctx, &checkeligibility.Input{
		StudentProfile: weakProfile("stu-weak"),
		Scholarship:    scholarship,
	})
	require.NoError(t, err)
	assert.False(t, ceOut.Passed)

	// --- 3. Record decisions until the sample log supports training ---
	rdHandler := recorddecision.NewHandler(
		recorddecision.LoadConfig(), stack.samples, stack.orchestrator, stack.extractor, log)

	for i := 0; i < 8; i++ {
		out, err := rdHandler.Execute(ctx, &recorddecision.Input{
			StudentProfile: strongProfile(fmt.Sprintf("stu-a-%d", i)),
			Scholarship:    scholarship,
			Decision:       models.LabelApproved,
		})
		require.NoError(t, err)
		assert.True(t, out.Recorded)
	}
	for i := 0; i < 8; i++ {
		out, err := rdHandler.Execute(ctx, &recorddecision.Input{
			StudentProfile: weakProfile(fmt.Sprintf("stu-r-%d", i)),
			Scholarship:    scholarship,
			Decision:       models.LabelRejected,
		})
		require.NoError(t, err)
		assert.True(t, out.Recorded)
	}

	// Decision counting may have kicked off a background run; wait so the
	// explicit training below never races the lock.
	stack.orchestrator.Wait()

	total, err := stack.samples.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, total)

	// --- 4. Explicit global training ---
	tmHandler := trainmodel.NewHandler(trainmodel.LoadConfig(), stack.orchestrator, log)
	tmOut, err := tmHandler.Execute(ctx, &trainmodel.Input{Mode: trainmodel.ModeGlobal})
	require.NoError(t, err)
	require.Len(t, tmOut.Results, 1)
	assert.Equal(t, autotrain.StatusTrained, tmOut.Results[0].Status)
	assert.Equal(t, models.ScopeGlobal, tmOut.Results[0].Scope)

	active, err := stack.models.GetActive(ctx, models.ScopeGlobal)
	require.NoError(t, err)
	require.NotNil(t, active)

	// --- 5. Prediction with the freshly trained model ---
	ppHandler := predictprobability.NewHandler(
		predictprobability.LoadConfig(), stack.db, stack.redis.Client, stack.models, stack.extractor, log)

	strong, err := ppHandler.Execute(ctx, &predictprobability.Input{
		StudentProfile: strongProfile("stu-predict-strong"),
		Scholarship:    scholarship,
	})
	require.NoError(t, err)
	weak, err := ppHandler.Execute(ctx, &predictprobability.Input{
		StudentProfile: weakProfile("stu-predict-weak"),
		Scholarship:    scholarship,
	})
	require.NoError(t, err)

	assert.Greater(t, strong.Probability, weak.Probability,
		"model trained on approved-strong/rejected-weak must separate them")
	assert.Greater(t, strong.Probability, 0.0)
	assert.Less(t, strong.Probability, 1.0)

	// --- 6. Ranking across scholarships ---
	open := testScholarship("sch-e2e-open")
	open.Criteria = models.EligibilityCriteria{}
	rrHandler := rankrecommendations.NewHandler(
		rankrecommendations.LoadConfig(), stack.models, stack.extractor, log)
	rrOut, err := rrHandler.Execute(ctx, &rankrecommendations.Input{
		StudentProfile: weakProfile("stu-rank"),
		Candidates:     []*models.Scholarship{scholarship, open},
	})
	require.NoError(t, err)
	require.Len(t, rrOut.Recommendations, 2)
	assert.Equal(t, open.ID, rrOut.Recommendations[0].ScholarshipID,
		"eligible open scholarship must outrank the one the weak profile fails")

	// --- 7. Data access over PostgreSQL ---
	seedScholarship(t, stack, "sch-db-1", "DB Scholarship",
		`{"maxGWA": 2.0, "minUnits": 15}`)
	qsHandler := queryscholarships.NewHandler(queryscholarships.LoadConfig(), stack.db, log)
	qsOut, err := qsHandler.Execute(ctx, &queryscholarships.Input{
		QueryType: string(queryscholarships.QueryTypeActiveScholarships),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, qsOut.RowCount)

	decOut, err := qsHandler.Execute(ctx, &queryscholarships.Input{
		QueryType:     string(queryscholarships.QueryTypeScholarshipDecisions),
		ScholarshipID: scholarship.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 16, decOut.RowCount)

	// --- 8. Model lifecycle and status ---
	mmHandler := managemodel.NewHandler(
		managemodel.LoadConfig(), stack.models, stack.orchestrator, log)
	mmOut, err := mmHandler.Execute(ctx, &managemodel.Input{
		Action:  managemodel.ActionActivate,
		ModelID: active.ModelID,
	})
	require.NoError(t, err)
	require.NotNil(t, mmOut.Model)
	assert.Equal(t, active.ModelID, mmOut.Model.ModelID)

	tsHandler := trainingstatus.NewHandler(trainingstatus.LoadConfig(), stack.orchestrator, log)
	tsOut, err := tsHandler.Execute(ctx, &trainingstatus.Input{LogLimit: 10})
	require.NoError(t, err)
	require.NotNil(t, tsOut.Status)
	assert.GreaterOrEqual(t, tsOut.Status.ModelVersion, int64(1))
	assert.NotEmpty(t, tsOut.Log, "training runs must land in the event log")
}

func TestSearchScholarshipsE2E(t *testing.T) {
	if os.Getenv("E2E_TESTS") == "" {
		t.Skip("set E2E_TESTS=1 to run against live services")
	}
	log := logger.NewTestLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
	})
	require.NoError(t, err)
	if res, err := es.Info(); err != nil {
		t.Skipf("Elasticsearch not reachable: %v", err)
	} else {
		res.Body.Close()
	}

	const index = "scholarships-e2e"
	doc := `{"name": "Engineering Merit Grant", "provider": "DOST", "status": "active",
		"description": "For engineering students", "slots_available": 25}`
	res, err := es.Index(index, strings.NewReader(doc), es.Index.WithRefresh("true"))
	require.NoError(t, err)
	res.Body.Close()
	defer func() {
		if res, err := es.Indices.Delete([]string{index}); err == nil {
			res.Body.Close()
		}
	}()

	ssHandler := searchscholarships.NewHandler(searchscholarships.LoadConfig(), es, log)
	out, err := ssHandler.Execute(ctx, &searchscholarships.Input{
		IndexName: index,
		QueryType: "scholarship_search",
		Filters:   map[string]interface{}{"keywords": "engineering"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.TotalHits)
}
