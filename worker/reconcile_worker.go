package worker

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
	"teamfinder/models"
	"teamfinder/utils"
)

// ReconcileWorker sweeps every team on an interval and repairs member
// counters that have drifted from the membership rows. Drift should never
// happen under normal operation, so every repair is reported.
type ReconcileWorker struct {
	DB         *gorm.DB
	Membership *utils.MembershipManager
	Logger     *log.Logger
	Interval   time.Duration
}

func NewReconcileWorker(db *gorm.DB, logger *log.Logger) *ReconcileWorker {
	return &ReconcileWorker{
		DB:         db,
		Membership: utils.NewMembershipManager(db, logger),
		Logger:     logger,
		Interval:   5 * time.Minute,
	}
}

func (rw *ReconcileWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up; shutdown cuts it short
	select {
	case <-ctx.Done():
		return
	case <-time.After(10 * time.Second):
	}

	rw.Logger.Println("Reconcile worker started")

	ticker := time.NewTicker(rw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.Logger.Println("Reconcile worker shutting down...")
			return
		case <-ticker.C:
			rw.sweep()
		}
	}
}

func (rw *ReconcileWorker) sweep() {
	var teamIDs []string
	if err := rw.DB.Model(&models.Team{}).Pluck("id", &teamIDs).Error; err != nil {
		rw.Logger.Printf("Error fetching teams for reconciliation: %v", err)
		return
	}

	repairedTotal := 0
	for _, teamID := range teamIDs {
		count, repaired, err := rw.Membership.ReconcileTeam(teamID)
		if err != nil {
			rw.Logger.Printf("Error reconciling team %s: %v", teamID, err)
			continue
		}
		if repaired {
			repairedTotal++
			utils.LogEvent("member_count_repaired", map[string]interface{}{
				"team_id":   teamID,
				"new_count": count,
			})
		}
	}

	if repairedTotal > 0 {
		rw.Logger.Printf("Reconciliation repaired %d team(s)", repairedTotal)
	}
}
