package config_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
)

var _ = Describe("Schema", func() {
	var doc map[string]any

	BeforeEach(func() {
		raw, err := json.Marshal(config.Schema())
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(raw, &doc)).To(Succeed())
	})

	property := func(m map[string]any, name string) map[string]any {
		props, ok := m["properties"].(map[string]any)
		Expect(ok).To(BeTrue(), "schema has no properties")
		p, ok := props[name].(map[string]any)
		Expect(ok).To(BeTrue(), "missing property %s", name)
		return p
	}

	It("names properties after the file's keys", func() {
		Expect(property(doc, "run_times")["type"]).To(Equal("array"))
		Expect(property(doc, "alert_users_at")["default"]).To(Equal("1000"))
	})

	It("inlines nested sections and reports durations as strings", func() {
		watch := property(doc, "watch")
		Expect(property(watch, "batch_size")["minimum"]).To(BeNumerically("==", 1))
		Expect(property(watch, "poll_interval")["type"]).To(Equal("string"))
	})

	It("rejects unknown keys", func() {
		Expect(doc["additionalProperties"]).To(BeFalse())
	})
})
