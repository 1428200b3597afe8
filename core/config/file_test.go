package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
)

var _ = Describe("LoadFile", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	write := func(body string) string {
		path := filepath.Join(dir, "config.json")
		Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
		return path
	}

	It("falls back to defaults when the file is missing", func() {
		cfg, err := config.LoadFile(filepath.Join(dir, "missing.json"))
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.RunOnInterval).To(BeTrue())
		Expect(cfg.IntervalMinutes).To(Equal(60))
		Expect(cfg.AlertUsersAt).To(Equal("1000"))
		Expect(cfg.EndDateField).To(Equal(config.DefaultEndDateField))
		Expect(cfg.Watch.BatchSize).To(Equal(5))
		Expect(cfg.Watch.BatchTimeout).To(Equal(30 * time.Second))
		Expect(cfg.Watch.FetchTimeout).To(Equal(8 * time.Second))
		Expect(cfg.Watch.BatchDelay).To(Equal(time.Second))
		Expect(cfg.Scheduler.Tolerance).To(Equal(60 * time.Second))
		Expect(cfg.Scheduler.ErrorBackoff).To(Equal(300 * time.Second))
		Expect(cfg.Scheduler.IntervalYieldsToExplicit).To(BeTrue())
		Expect(cfg.Automation.Concurrency).To(Equal(3))
		Expect(cfg.Automation.Queries).To(ConsistOf(config.DefaultSubtaskQuery, config.DefaultBugQuery))
	})

	It("reads the file and keeps defaults for absent keys", func() {
		path := write(`{
			"repositories": ["core-api", "web"],
			"run_times": ["1000", "1400"],
			"run_status_updater_on_interval": false,
			"status_updater_interval": 30,
			"alert_users_at": "930",
			"users": [{"name": "Asha", "jira_id": "abc123", "slack_id": "U01"}],
			"watch": {"batch_size": 10, "batch_timeout": "45s"}
		}`)

		cfg, err := config.LoadFile(path)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Repositories).To(Equal([]string{"core-api", "web"}))
		Expect(cfg.RunTimes).To(Equal([]string{"1000", "1400"}))
		Expect(cfg.RunOnInterval).To(BeFalse())
		Expect(cfg.Interval()).To(Equal(30 * time.Minute))
		Expect(cfg.AlertUsersAt).To(Equal("930"))
		Expect(cfg.Users).To(HaveLen(1))
		Expect(cfg.Users[0].SlackID).To(Equal("U01"))
		Expect(cfg.Watch.BatchSize).To(Equal(10))
		Expect(cfg.Watch.BatchTimeout).To(Equal(45 * time.Second))
		Expect(cfg.Watch.FetchTimeout).To(Equal(8 * time.Second))
	})

	DescribeTable("rejects fatal misconfiguration",
		func(body string) {
			_, err := config.LoadFile(write(body))
			Expect(err).To(HaveOccurred())
		},
		Entry("malformed alert time", `{"alert_users_at": "2460"}`),
		Entry("non-numeric alert time", `{"alert_users_at": "ten"}`),
		Entry("zero interval", `{"status_updater_interval": 0}`),
		Entry("negative interval", `{"status_updater_interval": -5}`),
		Entry("user without slack id", `{"users": [{"name": "x", "jira_id": "j"}]}`),
		Entry("broken json", `{"repositories": [`),
	)

	It("does not reject malformed run_times entries", func() {
		cfg, err := config.LoadFile(write(`{"run_times": ["1000", "99x"]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.RunTimes).To(HaveLen(2))
	})
})
