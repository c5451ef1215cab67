package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/recruitmatch/pkg/institution"
	"github.com/hazyhaar/recruitmatch/pkg/kit"
	"github.com/hazyhaar/recruitmatch/pkg/match"
	"github.com/hazyhaar/recruitmatch/pkg/metrics"
)

// MaxRankCandidates caps one rank request.
const MaxRankCandidates = 500

// ErrInvalidRequest marks errors caused by the caller's input.
var ErrInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// AthleteStore is the record store surface the API needs.
type AthleteStore interface {
	Create(ctx context.Context, c match.Candidate) (match.Candidate, error)
	Get(ctx context.Context, id string) (match.Candidate, error)
	Update(ctx context.Context, c match.Candidate) (match.Candidate, error)
	List(ctx context.Context, limit int) ([]match.Candidate, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// DuplicateFinder looks up likely duplicates of a submission.
type DuplicateFinder interface {
	Find(ctx context.Context, crit match.Criteria) ([]match.ScoredMatch, error)
}

// Service holds the collaborators behind every endpoint. Store and Finder
// may be nil, in which case the athlete and duplicate endpoints report an
// error.
type Service struct {
	Registry      *institution.Registry
	Store         AthleteStore
	Finder        DuplicateFinder
	Metrics       *metrics.Manager
	Logger        *slog.Logger
	DefaultCorpus string
	Now           func() time.Time
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) corpus(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return s.DefaultCorpus
}

// Shared request/response types used by both HTTP and MCP transports.

type resolveReq struct {
	Query  string
	Corpus string
}

type resolveResponse struct {
	Query  string             `json:"query"`
	Corpus string             `json:"corpus"`
	Match  *institution.Match `json:"match"`
}

type logoResponse struct {
	Query  string  `json:"query"`
	Corpus string  `json:"corpus"`
	Name   *string `json:"name"`
	Logo   *string `json:"logo"`
}

type scoreReq struct {
	Candidate match.Candidate `json:"candidate"`
	Criteria  match.Criteria  `json:"criteria"`
	MatchType match.MatchType `json:"matchType"`
}

type rankItem struct {
	Candidate match.Candidate `json:"candidate"`
	MatchType match.MatchType `json:"matchType"`
}

type rankReq struct {
	Criteria   match.Criteria `json:"criteria"`
	Candidates []rankItem     `json:"candidates"`
}

type rankResponse struct {
	Results []match.ScoredMatch `json:"results"`
}

type duplicatesResponse struct {
	Matches []match.ScoredMatch `json:"matches"`
}

type athletesResponse struct {
	Athletes []match.Candidate `json:"athletes"`
}

type listAthletesReq struct {
	Limit int
}

type corporaResponse struct {
	Corpora []institution.CorpusInfo `json:"corpora"`
}

// endpoints bundles the kit.Endpoints shared by the HTTP and MCP transports.
type endpoints struct {
	resolve       kit.Endpoint
	resolveLogo   kit.Endpoint
	score         kit.Endpoint
	rank          kit.Endpoint
	duplicates    kit.Endpoint
	createAthlete kit.Endpoint
	getAthlete    kit.Endpoint
	updateAthlete kit.Endpoint
	listAthletes  kit.Endpoint
	deleteAthlete kit.Endpoint
	listCorpora   kit.Endpoint
}

func (s *Service) endpoints() endpoints {
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(s.logger(), name), s.Metrics.Middleware(name))(ep)
	}
	return endpoints{
		resolve:       wrap("resolve", s.resolveEndpoint()),
		resolveLogo:   wrap("resolve_logo", s.resolveLogoEndpoint()),
		score:         wrap("score", s.scoreEndpoint()),
		rank:          wrap("rank", s.rankEndpoint()),
		duplicates:    wrap("duplicates", s.duplicatesEndpoint()),
		createAthlete: wrap("create_athlete", s.createAthleteEndpoint()),
		getAthlete:    wrap("get_athlete", s.getAthleteEndpoint()),
		updateAthlete: wrap("update_athlete", s.updateAthleteEndpoint()),
		listAthletes:  wrap("list_athletes", s.listAthletesEndpoint()),
		deleteAthlete: wrap("delete_athlete", s.deleteAthleteEndpoint()),
		listCorpora:   wrap("list_corpora", s.listCorporaEndpoint()),
	}
}

func (s *Service) lookup(req *resolveReq) (string, *institution.Match, error) {
	if strings.TrimSpace(req.Query) == "" {
		return "", nil, invalid("missing query")
	}
	id := s.corpus(req.Corpus)
	m, err := s.Registry.Resolve(id, req.Query)
	if err != nil {
		return id, nil, err
	}
	stage := ""
	if m != nil {
		stage = m.Stage.String()
	}
	s.Metrics.RecordResolution(id, stage)
	return id, m, nil
}

func (s *Service) resolveEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*resolveReq)
		id, m, err := s.lookup(req)
		if err != nil {
			return nil, err
		}
		return resolveResponse{Query: req.Query, Corpus: id, Match: m}, nil
	}
}

func (s *Service) resolveLogoEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*resolveReq)
		id, m, err := s.lookup(req)
		if err != nil {
			return nil, err
		}
		resp := logoResponse{Query: req.Query, Corpus: id}
		if m != nil {
			name := m.Entity.Name
			resp.Name = &name
			if m.Entity.Payload != "" {
				logo := m.Entity.Payload
				resp.Logo = &logo
			}
		}
		return resp, nil
	}
}

func (s *Service) scoreEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*scoreReq)
		m := match.Score(req.Candidate, req.Criteria, req.MatchType, s.now())
		s.Metrics.RecordScore(m.ConfidenceLevel.Key)
		return m, nil
	}
}

func (s *Service) rankEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*rankReq)
		if len(req.Candidates) > MaxRankCandidates {
			return nil, invalid("too many candidates (max %d, got %d)", MaxRankCandidates, len(req.Candidates))
		}
		now := s.now()
		scored := make([]match.ScoredMatch, len(req.Candidates))
		for i, item := range req.Candidates {
			scored[i] = match.Score(item.Candidate, req.Criteria, item.MatchType, now)
			s.Metrics.RecordScore(scored[i].ConfidenceLevel.Key)
		}
		return rankResponse{Results: match.Rank(scored)}, nil
	}
}

var errNoStore = errors.New("athlete store not configured")

func (s *Service) duplicatesEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if s.Finder == nil {
			return nil, errNoStore
		}
		crit := request.(*match.Criteria)
		found, err := s.Finder.Find(ctx, *crit)
		if err != nil {
			return nil, err
		}
		s.Metrics.RecordDuplicateLookup(len(found))
		if found == nil {
			found = []match.ScoredMatch{}
		}
		return duplicatesResponse{Matches: found}, nil
	}
}

func (s *Service) createAthleteEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if s.Store == nil {
			return nil, errNoStore
		}
		return s.Store.Create(ctx, *request.(*match.Candidate))
	}
}

func (s *Service) getAthleteEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if s.Store == nil {
			return nil, errNoStore
		}
		return s.Store.Get(ctx, request.(string))
	}
}

// updateAthleteReq replaces the athlete named by the path id.
type updateAthleteReq struct {
	ID      string
	Athlete match.Candidate
}

func (s *Service) updateAthleteEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if s.Store == nil {
			return nil, errNoStore
		}
		req := request.(*updateAthleteReq)
		req.Athlete.ID = match.Text(req.ID)
		return s.Store.Update(ctx, req.Athlete)
	}
}

func (s *Service) listAthletesEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if s.Store == nil {
			return nil, errNoStore
		}
		list, err := s.Store.List(ctx, request.(*listAthletesReq).Limit)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []match.Candidate{}
		}
		return athletesResponse{Athletes: list}, nil
	}
}

func (s *Service) deleteAthleteEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if s.Store == nil {
			return nil, errNoStore
		}
		return nil, s.Store.Delete(ctx, request.(string))
	}
}

func (s *Service) listCorporaEndpoint() kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return corporaResponse{Corpora: s.Registry.ListCorpora()}, nil
	}
}
