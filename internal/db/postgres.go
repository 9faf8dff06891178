package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/radiq/radiq-backend/internal/platform/envutil"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(logg *logger.Logger) (*PostgresService, error) {
	serviceLog := logg.With("service", "PostgresService")

	postgresHost := envutil.GetEnv("POSTGRES_HOST", "localhost", logg)
	postgresPort := envutil.GetEnv("POSTGRES_PORT", "5432", logg)
	postgresUser := envutil.GetEnv("POSTGRES_USER", "postgres", logg)
	postgresPassword := envutil.GetEnv("POSTGRES_PASSWORD", "", logg)
	postgresName := envutil.GetEnv("POSTGRES_NAME", "radiq", logg)

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser,
		postgresPassword,
		postgresHost,
		postgresPort,
		postgresName,
	)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Study{},
		&types.StudyInvitation{},
		&types.ObserverProfile{},
		&types.Session{},
		&types.VisionTestResult{},
		&types.ImageAsset{},
		&types.StudyImage{},
		&types.PairwiseTask{},
		&types.PairwiseEvaluation{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	return applyConstraints(s.db)
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

// applyConstraints adds the relationships and invariants AutoMigrate does
// not cover. The unique index on pairwise_evaluation(session_id, task_id)
// comes from the model tags; the FK and CHECK constraints live here.
func applyConstraints(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"fk_invitation_study", `
			ALTER TABLE "study_invitation"
			ADD CONSTRAINT "fk_invitation_study"
			FOREIGN KEY ("study_id") REFERENCES "study"("id")
			ON DELETE CASCADE`},
		{"fk_session_study", `
			ALTER TABLE "session"
			ADD CONSTRAINT "fk_session_study"
			FOREIGN KEY ("study_id") REFERENCES "study"("id")
			ON DELETE CASCADE`},
		{"fk_session_observer", `
			ALTER TABLE "session"
			ADD CONSTRAINT "fk_session_observer"
			FOREIGN KEY ("observer_id") REFERENCES "observer_profile"("id")`},
		{"fk_session_invitation", `
			ALTER TABLE "session"
			ADD CONSTRAINT "fk_session_invitation"
			FOREIGN KEY ("invitation_id") REFERENCES "study_invitation"("id")`},
		{"fk_vision_session", `
			ALTER TABLE "vision_test_result"
			ADD CONSTRAINT "fk_vision_session"
			FOREIGN KEY ("session_id") REFERENCES "session"("id")
			ON DELETE CASCADE`},
		{"fk_study_image_study", `
			ALTER TABLE "study_image"
			ADD CONSTRAINT "fk_study_image_study"
			FOREIGN KEY ("study_id") REFERENCES "study"("id")
			ON DELETE CASCADE`},
		{"fk_study_image_image", `
			ALTER TABLE "study_image"
			ADD CONSTRAINT "fk_study_image_image"
			FOREIGN KEY ("image_id") REFERENCES "image_asset"("id")
			ON DELETE CASCADE`},
		{"fk_task_study", `
			ALTER TABLE "pairwise_task"
			ADD CONSTRAINT "fk_task_study"
			FOREIGN KEY ("study_id") REFERENCES "study"("id")
			ON DELETE CASCADE`},
		{"fk_task_left_image", `
			ALTER TABLE "pairwise_task"
			ADD CONSTRAINT "fk_task_left_image"
			FOREIGN KEY ("left_image_id") REFERENCES "image_asset"("id")`},
		{"fk_task_right_image", `
			ALTER TABLE "pairwise_task"
			ADD CONSTRAINT "fk_task_right_image"
			FOREIGN KEY ("right_image_id") REFERENCES "image_asset"("id")`},
		{"fk_evaluation_session", `
			ALTER TABLE "pairwise_evaluation"
			ADD CONSTRAINT "fk_evaluation_session"
			FOREIGN KEY ("session_id") REFERENCES "session"("id")
			ON DELETE CASCADE`},
		{"fk_evaluation_task", `
			ALTER TABLE "pairwise_evaluation"
			ADD CONSTRAINT "fk_evaluation_task"
			FOREIGN KEY ("task_id") REFERENCES "pairwise_task"("id")
			ON DELETE CASCADE`},
		{"ck_task_distinct_sides", `
			ALTER TABLE "pairwise_task"
			ADD CONSTRAINT "ck_task_distinct_sides"
			CHECK ("left_image_id" <> "right_image_id")`},
		{"ck_invitation_uses", `
			ALTER TABLE "study_invitation"
			ADD CONSTRAINT "ck_invitation_uses"
			CHECK ("max_uses" IS NULL OR "used_count" <= "max_uses")`},
	}

	for _, st := range stmts {
		var exists bool
		if err := db.Raw(
			`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, st.name,
		).Scan(&exists).Error; err != nil {
			return fmt.Errorf("failed to check constraint %s: %w", st.name, err)
		}
		if exists {
			continue
		}
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", st.name, err)
		}
	}
	return nil
}

// ApplyConstraints is exposed for the test bootstrap, which migrates into a
// scratch database the same way the server does.
func ApplyConstraints(db *gorm.DB) error { return applyConstraints(db) }
