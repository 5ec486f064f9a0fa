package crawler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v80/github"
	"github.com/rs/zerolog/log"

	"github.com/quailhollow/docsearch/pkg/models"
)

// IssueImporter turns open tracker issues into passages. Only the
// first page of up to 100 issues is fetched; deeper pagination is a
// known limitation, not an oversight.
type IssueImporter struct {
	gh    *gh.Client
	owner string
	repo  string
}

// NewIssueImporter creates an importer for "owner/name". The token is
// optional; without it the importer runs against the public API quota.
func NewIssueImporter(repo, token string) (*IssueImporter, error) {
	client := gh.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return NewIssueImporterWithClient(client, repo)
}

// NewIssueImporterWithClient creates an importer with a caller-supplied
// GitHub client, used by tests to point at a local server.
func NewIssueImporterWithClient(client *gh.Client, repo string) (*IssueImporter, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid repository %q, want owner/name", repo)
	}
	return &IssueImporter{gh: client, owner: owner, repo: name}, nil
}

// Passages fetches one page of open issues and emits a passage per
// issue. Any API failure is treated as "no issues available": logged,
// empty result, never fatal to the ingestion run.
func (im *IssueImporter) Passages(ctx context.Context) ([]models.Passage, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       "open",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	issues, _, err := im.gh.Issues.ListByRepo(ctx, im.owner, im.repo, opts)
	if err != nil {
		log.Warn().Err(err).
			Str("repository", im.owner+"/"+im.repo).
			Msg("could not fetch issues")
		return nil, nil
	}

	out := make([]models.Passage, 0, len(issues))
	for _, issue := range issues {
		// The issues endpoint also returns pull requests.
		if issue.IsPullRequest() {
			continue
		}
		out = append(out, models.Passage{
			Source:  models.SourceGithub,
			DocID:   strconv.Itoa(issue.GetNumber()),
			Content: issue.GetTitle() + "\n\n" + issue.GetBody(),
		})
	}
	return out, nil
}
