package runs_test

import (
	"context"
	"time"

	"brandwatch/internal/config"
	"brandwatch/internal/db"
	"brandwatch/internal/models"
	"brandwatch/internal/runs"
	"brandwatch/internal/testhelpers"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Tracker", func() {
	var (
		ctx     context.Context
		dbConn  *gorm.DB
		tracker *runs.Tracker
		user    *models.User
	)

	BeforeEach(func() {
		ctx = context.Background()

		cfg, err := config.LoadConfig()
		Expect(err).NotTo(HaveOccurred())

		dbConn, err = db.InitDB(cfg.DatabaseURL)
		if err != nil {
			Skip("database not available: " + err.Error())
		}

		Expect(db.Migrate(dbConn)).To(Succeed())
		testhelpers.CleanupDB(dbConn)

		tracker = runs.NewTracker(dbConn)
		user = testhelpers.CreateUser(dbConn, "Acme")
	})

	Describe("Create", func() {
		It("inserts a pending run with its totals", func() {
			estimate := time.Now().UTC().Add(time.Minute)

			run, err := tracker.Create(ctx, user.ID, 12, &estimate)
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Status).To(Equal(models.RunStatusPending))
			Expect(run.TotalTests).To(Equal(12))
			Expect(run.CompletedTests).To(Equal(0))
			Expect(run.FailedTests).To(Equal(0))
			Expect(run.EstimatedCompletion).NotTo(BeNil())
		})
	})

	Describe("MarkRunning", func() {
		It("moves a pending run to running exactly once", func() {
			run := testhelpers.CreateBulkRun(dbConn, user.ID, 3)

			Expect(tracker.MarkRunning(ctx, run.ID)).To(Succeed())
			Expect(tracker.MarkRunning(ctx, run.ID)).To(Succeed())

			got, err := tracker.Get(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(models.RunStatusRunning))
		})

		It("does not touch a terminal run", func() {
			run := testhelpers.CreateBulkRun(dbConn, user.ID, 1)
			Expect(tracker.RecordUnitSuccess(ctx, run.ID)).To(Succeed())

			Expect(tracker.MarkRunning(ctx, run.ID)).To(Succeed())

			got, err := tracker.Get(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(models.RunStatusCompleted))
		})
	})

	Describe("RecordUnitSuccess", func() {
		It("increments the counter and stays non-terminal while units remain", func() {
			run := testhelpers.CreateBulkRun(dbConn, user.ID, 3)

			Expect(tracker.RecordUnitSuccess(ctx, run.ID)).To(Succeed())

			got, err := tracker.Get(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.CompletedTests).To(Equal(1))
			Expect(got.Terminal()).To(BeFalse())
		})

		It("completes the run once every unit is accounted for", func() {
			run := testhelpers.CreateBulkRun(dbConn, user.ID, 2)

			Expect(tracker.RecordUnitSuccess(ctx, run.ID)).To(Succeed())
			Expect(tracker.RecordUnitSuccess(ctx, run.ID)).To(Succeed())

			got, err := tracker.Get(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(models.RunStatusCompleted))
			Expect(got.CompletedTests).To(Equal(2))
		})

		It("returns ErrRunNotFound for an unknown run", func() {
			err := tracker.RecordUnitSuccess(ctx, "no-such-run")
			Expect(err).To(MatchError(runs.ErrRunNotFound))
		})
	})

	Describe("RecordUnitFailure", func() {
		It("keeps the failure reason alongside the counter", func() {
			run := testhelpers.CreateBulkRun(dbConn, user.ID, 3)

			err := tracker.RecordUnitFailure(ctx, run.ID, &models.RunFailure{
				PromptID:       "prompt-1",
				Provider:       "openai",
				Model:          "gpt-4o",
				IterationIndex: 2,
				Reason:         "provider timeout",
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := tracker.Get(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FailedTests).To(Equal(1))

			failures, err := tracker.Failures(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(failures).To(HaveLen(1))
			Expect(failures[0].Reason).To(Equal("provider timeout"))
			Expect(failures[0].IterationIndex).To(Equal(2))
		})

		It("marks the run failed only when every unit failed", func() {
			run := testhelpers.CreateBulkRun(dbConn, user.ID, 2)

			Expect(tracker.RecordUnitFailure(ctx, run.ID, &models.RunFailure{Reason: "boom"})).To(Succeed())
			Expect(tracker.RecordUnitFailure(ctx, run.ID, &models.RunFailure{Reason: "boom"})).To(Succeed())

			got, err := tracker.Get(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(models.RunStatusFailed))
		})

		It("marks the run completed when at least one unit succeeded", func() {
			run := testhelpers.CreateBulkRun(dbConn, user.ID, 3)

			Expect(tracker.RecordUnitFailure(ctx, run.ID, &models.RunFailure{Reason: "boom"})).To(Succeed())
			Expect(tracker.RecordUnitSuccess(ctx, run.ID)).To(Succeed())
			Expect(tracker.RecordUnitFailure(ctx, run.ID, &models.RunFailure{Reason: "boom"})).To(Succeed())

			got, err := tracker.Get(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(models.RunStatusCompleted))
			Expect(got.CompletedTests).To(Equal(1))
			Expect(got.FailedTests).To(Equal(2))
		})
	})

	Describe("redelivered units", func() {
		It("rejects updates once the run is fully accounted", func() {
			run := testhelpers.CreateBulkRun(dbConn, user.ID, 1)
			Expect(tracker.RecordUnitSuccess(ctx, run.ID)).To(Succeed())

			err := tracker.RecordUnitSuccess(ctx, run.ID)
			Expect(err).To(MatchError(runs.ErrRunAccounted))

			got, err := tracker.Get(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.CompletedTests).To(Equal(1))
			Expect(got.FailedTests).To(Equal(0))
			Expect(got.Status).To(Equal(models.RunStatusCompleted))
		})
	})

	Describe("Get", func() {
		It("returns ErrRunNotFound for an unknown id", func() {
			_, err := tracker.Get(ctx, "no-such-run")
			Expect(err).To(MatchError(runs.ErrRunNotFound))
		})
	})

	Describe("ListByUser", func() {
		It("returns the user's runs newest first, bounded by limit", func() {
			first := testhelpers.CreateBulkRun(dbConn, user.ID, 1)
			Expect(dbConn.Model(&models.BulkRun{}).Where("id = ?", first.ID).
				Update("created_at", time.Now().UTC().Add(-time.Hour)).Error).To(Succeed())
			second := testhelpers.CreateBulkRun(dbConn, user.ID, 2)

			other := testhelpers.CreateUser(dbConn, "Other")
			testhelpers.CreateBulkRun(dbConn, other.ID, 5)

			listed, err := tracker.ListByUser(ctx, user.ID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(HaveLen(2))
			Expect(listed[0].ID).To(Equal(second.ID))
			Expect(listed[1].ID).To(Equal(first.ID))

			limited, err := tracker.ListByUser(ctx, user.ID, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(limited).To(HaveLen(1))
		})
	})
})
