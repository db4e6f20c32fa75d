package di

import (
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"
	"github.com/lehelkovach/osl-agent-prototype-sub000/infrastructure/acl"
	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/formengine"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/scheduler"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/taskqueue"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/tools"

	"go.uber.org/zap"
)

var htmlTitleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

const maxObservationBodyLen = 50000

// recordWebObservation best-effort translates a fetched page into an
// Observation concept via the web content ACL adapter and upserts it into
// the KSG, so later runs can recall pages already seen. A translation or
// store failure never fails the web.get_dom call itself.
func recordWebObservation(ksgStore *ksg.Store, logger *zap.Logger, url, html string, status int) {
	title := url
	if m := htmlTitleRe.FindStringSubmatch(html); len(m) == 2 {
		if t := strings.TrimSpace(m[1]); t != "" {
			title = t
		}
	}
	body := html
	if len(body) > maxObservationBodyLen {
		body = body[:maxObservationBodyLen]
	}

	adapter := acl.NewWebContentAdapter()
	concept, err := adapter.TranslateToConcept(&acl.WebContent{
		URL:     url,
		Title:   title,
		Content: body,
		Metadata: map[string]interface{}{
			"status": status,
		},
		ExtractedAt: time.Now(),
	})
	if err != nil {
		logger.Debug("web content did not translate to an observation", zap.String("url", url), zap.Error(err))
		return
	}
	if err := ksgStore.Upsert(concept); err != nil {
		logger.Warn("failed to store web observation", zap.String("url", url), zap.Error(err))
	}
}

// RegisterTools binds the canonical tool names (§6.2) to real collaborators:
// an HTTP DOM fetcher, the KSG store for memory.*, the procedure store for
// procedure.*, and the task queue for queue.*. web.fill/click_selector/
// wait_for/screenshot have no backing browser driver in this module's
// dependency set (no chromedp/playwright among the pack's libraries), so
// they surface ADAPTER_UNAVAILABLE rather than silently no-opping.
func RegisterTools(registry *tools.Registry, ksgStore *ksg.Store, procedures *procedure.Store, queue *taskqueue.Queue, httpClient *http.Client, logger *zap.Logger, sched *scheduler.Scheduler) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry.Register(tools.Descriptor{
		Name:           tools.WebGetDOM,
		RequiredParams: []string{"url"},
		Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
			url, _ := params["url"].(string)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, agenterrors.InvalidInput("bad url: " + err.Error())
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return nil, agenterrors.ToolErr(tools.WebGetDOM, err)
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return nil, agenterrors.ToolErr(tools.WebGetDOM, err)
			}
			recordWebObservation(ksgStore, logger, url, string(body), resp.StatusCode)
			return tools.Params{"url": url, "html": string(body), "status": resp.StatusCode}, nil
		},
	})

	noDriver := func(name string) tools.Descriptor {
		return tools.Descriptor{
			Name:           name,
			RequiredParams: []string{"selector"},
			Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
				return nil, agenterrors.AdapterUnavailable("browser", errors.New("no browser automation driver is configured"))
			},
		}
	}
	registry.Register(noDriver(tools.WebFill))
	registry.Register(noDriver(tools.WebClickSelector))
	registry.Register(noDriver(tools.WebWaitFor))
	registry.Register(tools.Descriptor{
		Name:           tools.WebScreenshot,
		RequiredParams: nil,
		Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
			return nil, agenterrors.AdapterUnavailable("browser", errors.New("no browser automation driver is configured"))
		},
	})

	registry.Register(tools.Descriptor{
		Name:           tools.MemoryRemember,
		RequiredParams: []string{"kind", "text"},
		Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
			kind, _ := params["kind"].(string)
			text, _ := params["text"].(string)
			labels, _ := params["labels"].([]string)
			provenance := valueobjects.NewProvenance(valueobjects.SourceTool, valueobjects.NewTraceID(), 1.0, time.Now())
			concept, err := ksgStore.CreateNode(kind, labels, valueobjects.EmptyProperties().With("text", text), provenance)
			if err != nil {
				return nil, agenterrors.ToolErr(tools.MemoryRemember, err)
			}
			return tools.Params{"id": concept.ID().String()}, nil
		},
	})

	registry.Register(tools.Descriptor{
		Name:           tools.MemoryRecall,
		RequiredParams: []string{"kind"},
		Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
			kind, _ := params["kind"].(string)
			var labels []string
			if l, ok := params["labels"].([]string); ok {
				labels = l
			}
			results, err := ksgStore.Search(ksg.SearchFilters{Kind: kind, Labels: labels}, nil, 10, 0)
			if err != nil {
				return nil, agenterrors.ToolErr(tools.MemoryRecall, err)
			}
			ids := make([]string, 0, len(results))
			for _, r := range results {
				ids = append(ids, r.Concept.ID().String())
			}
			return tools.Params{"ids": ids}, nil
		},
	})

	registry.Register(tools.Descriptor{
		Name:           tools.QueueEnqueue,
		RequiredParams: []string{"kind"},
		Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
			priority := 0
			if p, ok := params["priority"].(float64); ok {
				priority = int(p)
			}

			// A "schedule" param (a TimeRule interval/cron/at expression)
			// registers a recurring C6 rule instead of enqueuing once: the
			// scheduler, not this tool, is what fires the actual enqueue
			// on its own tick (§4.6).
			if expr, ok := params["schedule"].(string); ok && expr != "" {
				if sched == nil {
					return nil, agenterrors.AdapterUnavailable("scheduler", errors.New("no scheduler configured"))
				}
				ruleKind := scheduler.KindInterval
				if k, ok := params["schedule_kind"].(string); ok && k != "" {
					ruleKind = scheduler.Kind(k)
				}
				ruleID, _ := params["rule_id"].(string)
				if ruleID == "" {
					ruleID = valueobjects.NewTraceID().String()
				}
				sched.AddRule(scheduler.Rule{
					ID:         ruleID,
					Kind:       ruleKind,
					Expression: expr,
					Payload:    map[string]interface{}{"priority": priority},
				})
				return tools.Params{"rule_id": ruleID}, nil
			}

			provenance := valueobjects.NewProvenance(valueobjects.SourceTool, valueobjects.NewTraceID(), 1.0, time.Now())
			item, err := queue.Enqueue(valueobjects.NodeID{}, valueobjects.NodeID{}, valueobjects.NodeID{}, priority, time.Time{}, provenance)
			if err != nil {
				return nil, agenterrors.ToolErr(tools.QueueEnqueue, err)
			}
			return tools.Params{"item_id": item.ID.String()}, nil
		},
	})

	registry.Register(tools.Descriptor{
		Name:           tools.QueueUpdate,
		RequiredParams: []string{"item_id", "state"},
		Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
			idStr, _ := params["item_id"].(string)
			id, err := valueobjects.NewNodeIDFromString(idStr)
			if err != nil {
				return nil, agenterrors.InvalidInput("bad item_id: " + err.Error())
			}
			state, _ := params["state"].(string)
			if err := queue.UpdateStatus(id, taskqueue.State(state)); err != nil {
				return nil, agenterrors.ToolErr(tools.QueueUpdate, err)
			}
			return tools.Params{}, nil
		},
	})

	registry.Register(tools.Descriptor{
		Name:           tools.ProcedureSearch,
		RequiredParams: []string{},
		Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
			minScore := 0.0
			if v, ok := params["min_score"].(float64); ok {
				minScore = v
			}
			matches, err := procedures.FindReusable(valueobjects.Embedding{}, minScore, 10)
			if err != nil {
				return nil, agenterrors.ToolErr(tools.ProcedureSearch, err)
			}
			ids := make([]string, 0, len(matches))
			for _, m := range matches {
				ids = append(ids, m.ProcedureID.String())
			}
			return tools.Params{"procedure_ids": ids}, nil
		},
	})
}

// RegisterFormAutofill registers form.autofill once the pattern store and
// vault exist, since both depend on registry already carrying web.get_dom.
func RegisterFormAutofill(registry *tools.Registry, autofiller *formengine.Autofiller) {
	registry.Register(tools.Descriptor{
		Name:           tools.FormAutofill,
		RequiredParams: []string{"domain", "kind"},
		Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
			domain, _ := params["domain"].(string)
			kind, _ := params["kind"].(string)
			fills, err := autofiller.Fill(ctx, domain, kind, formengine.Page{Domain: domain}, func(ctx context.Context, field string) (string, error) {
				return "", agenterrors.NotFound("no value available for field " + field)
			})
			if err != nil {
				return nil, agenterrors.ToolErr(tools.FormAutofill, err)
			}
			filled := make([]string, 0, len(fills))
			for _, f := range fills {
				if f.Filled {
					filled = append(filled, f.Field)
				}
			}
			return tools.Params{"filled": filled}, nil
		},
	})
}
