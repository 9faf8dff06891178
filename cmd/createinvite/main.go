package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/radiq/radiq-backend/internal/db"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/repos"
	"github.com/radiq/radiq-backend/internal/services"
)

// createinvite mints an invitation token for a study from the command line,
// for handing out before the admin UI exists.
func main() {
	var (
		studyIDFlag = flag.String("study", "", "study id (uuid, required)")
		ttlFlag     = flag.Duration("ttl", 0, "token lifetime, e.g. 72h (0 = no expiry)")
		maxUsesFlag = flag.Int("max-uses", 0, "maximum redemptions (0 = unlimited)")
	)
	flag.Parse()

	log, err := logger.New("production")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	studyID, err := uuid.Parse(*studyIDFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "usage: createinvite -study <uuid> [-ttl 72h] [-max-uses 20]")
		os.Exit(2)
	}

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	invitationRepo := repos.NewInvitationRepo(thePG, log)
	profileRepo := repos.NewObserverProfileRepo(thePG, log)
	sessionRepo := repos.NewSessionRepo(thePG, log)
	studyRepo := repos.NewStudyRepo(thePG, log)
	invitationService := services.NewInvitationService(thePG, log, invitationRepo, profileRepo, sessionRepo, studyRepo)

	var expiresAt *time.Time
	if *ttlFlag > 0 {
		t := time.Now().Add(*ttlFlag)
		expiresAt = &t
	}
	var maxUses *int
	if *maxUsesFlag > 0 {
		maxUses = maxUsesFlag
	}

	invitation, err := invitationService.Mint(context.Background(), studyID, expiresAt, maxUses)
	if err != nil {
		log.Error("mint failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("token: %s\n", invitation.Token)
	if invitation.ExpiresAt != nil {
		fmt.Printf("expires: %s\n", invitation.ExpiresAt.Format(time.RFC3339))
	}
	if invitation.MaxUses != nil {
		fmt.Printf("max uses: %d\n", *invitation.MaxUses)
	}
}
