package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

type gitlabMR struct {
	Title  string `json:"title"`
	State  string `json:"state"`
	WebURL string `json:"web_url"`
}

type gitlabAPIMock struct {
	server   *httptest.Server
	branches []map[string]string
	mrs      []gitlabMR
	perPage  int

	mu    sync.Mutex
	paths []string
}

func (m *gitlabAPIMock) requested() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

func (m *gitlabAPIMock) start() {
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.paths = append(m.paths, r.URL.EscapedPath())
		m.mu.Unlock()
		switch {
		case r.URL.EscapedPath() == "/api/v4/projects/acme%2Fweb/repository/branches":
			_ = json.NewEncoder(w).Encode(m.branches)
		case r.URL.EscapedPath() == "/api/v4/projects/acme%2Fweb/merge_requests":
			m.handleMergeRequests(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
}

func (m *gitlabAPIMock) handleMergeRequests(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page == 0 {
		page = 1
	}
	per := m.perPage
	if per == 0 {
		per = len(m.mrs)
	}
	start := (page - 1) * per
	end := min(start+per, len(m.mrs))
	if end < len(m.mrs) {
		w.Header().Set("X-Next-Page", strconv.Itoa(page+1))
	}
	_ = json.NewEncoder(w).Encode(m.mrs[start:end])
}

var _ = Describe("GitLab source", func() {
	var (
		ctx  context.Context
		mock *gitlabAPIMock
		src  RepositorySource
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = &gitlabAPIMock{}
		mock.start()
		var err error
		src, err = NewGitLabSource(config.GitLabConfig{URL: mock.server.URL, Token: "glpat", Group: "acme"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mock.server.Close()
	})

	It("prefixes bare repository names with the group", func() {
		mock.branches = []map[string]string{{"name": "feature/pay-12-rounding"}}

		name, found, err := src.FindBranch(ctx, "web", "PAY-12")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(name).To(Equal("feature/pay-12-rounding"))
		Expect(mock.requested()).To(ContainElement("/api/v4/projects/acme%2Fweb/repository/branches"))
	})

	It("drops search hits that do not carry the key", func() {
		mock.branches = []map[string]string{{"name": "PAY-120"}}
		name, found, err := src.FindBranch(ctx, "web", "PAY-13")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
		Expect(name).To(BeEmpty())
	})

	It("maps merge request states and skips closed ones across pages", func() {
		mock.perPage = 2
		mock.mrs = []gitlabMR{
			{Title: "PAY-12 rounding", State: "merged", WebURL: "https://gl/mr/1"},
			{Title: "PAY-12 abandoned", State: "closed", WebURL: "https://gl/mr/2"},
			{Title: "PAY-12 follow up", State: "opened", WebURL: "https://gl/mr/3"},
		}

		mrs, err := src.FindMergeRequests(ctx, "web", "PAY-12")
		Expect(err).NotTo(HaveOccurred())
		Expect(mrs).To(Equal([]model.MergeRequest{
			{Repository: "web", Title: "PAY-12 rounding", State: model.MergeRequestStateMerged, Link: "https://gl/mr/1"},
			{Repository: "web", Title: "PAY-12 follow up", State: model.MergeRequestStateOpen, Link: "https://gl/mr/3"},
		}))
	})

	It("surfaces API errors", func() {
		_, _, err := src.FindBranch(ctx, "other/repo", "PAY-12")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewRepositorySource", func() {
	It("requires credentials for the selected provider", func() {
		_, err := NewRepositorySource(config.VCSConfig{Provider: config.VCSProviderBitbucket})
		Expect(err).To(HaveOccurred())

		_, err = NewRepositorySource(config.VCSConfig{Provider: config.VCSProviderGitLab})
		Expect(err).To(HaveOccurred())
	})

	It("builds a bitbucket source", func() {
		src, err := NewRepositorySource(config.VCSConfig{
			Provider:  config.VCSProviderBitbucket,
			Bitbucket: config.BitbucketConfig{Token: "t", Workspace: "acme"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(src).To(BeAssignableToTypeOf(&bitbucketSource{}))
	})
})
