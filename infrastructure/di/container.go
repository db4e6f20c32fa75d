// Package di hand-wires the application's collaborators. There is no
// generated wire_gen.go here: the container below is built and returned by
// a plain constructor function, the same way 2lar's injector would look
// once `wire` had run, but without depending on the wire binary at build
// time.
package di

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/commands"
	commandhandlers "github.com/lehelkovach/osl-agent-prototype-sub000/application/commands/handlers"
	commandbus "github.com/lehelkovach/osl-agent-prototype-sub000/application/commands/bus"
	"github.com/lehelkovach/osl-agent-prototype-sub000/application/mediator"
	"github.com/lehelkovach/osl-agent-prototype-sub000/application/ports"
	"github.com/lehelkovach/osl-agent-prototype-sub000/application/queries"
	querybus "github.com/lehelkovach/osl-agent-prototype-sub000/application/queries/bus"
	queryhandlers "github.com/lehelkovach/osl-agent-prototype-sub000/application/queries/handlers"
	agentcfg "github.com/lehelkovach/osl-agent-prototype-sub000/internal/config"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"

	infraconfig "github.com/lehelkovach/osl-agent-prototype-sub000/infrastructure/config"
	"github.com/lehelkovach/osl-agent-prototype-sub000/infrastructure/messaging"
	"github.com/lehelkovach/osl-agent-prototype-sub000/infrastructure/messaging/eventbridge"
	"github.com/lehelkovach/osl-agent-prototype-sub000/infrastructure/persistence/memory"

	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/agent"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/formengine"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/ksg"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/learning"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/llm"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/observability"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/procedure"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/resilience"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/scheduler"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/taskqueue"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/tools"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/workingmem"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	pkgobservability "github.com/lehelkovach/osl-agent-prototype-sub000/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Container holds every collaborator the HTTP and websocket interfaces need.
// It replaces the wireinject-tagged Container this tree carried before:
// that one required running the external wire tool to produce a
// wire_gen.go, and no such file was ever checked in.
type Container struct {
	InfraConfig *infraconfig.Config
	AgentConfig *agentcfg.Config
	Logger      *zap.Logger

	KSGStore   *ksg.Store
	Procedures *procedure.Store
	Tools      *tools.Registry
	WorkingMem *workingmem.Memory
	Learning   *learning.Engine
	Breaker    *resilience.Breaker
	LLMClient  llm.Client
	AgentLoop  *agent.Loop
	Queue      *taskqueue.Queue
	Scheduler  *scheduler.Scheduler

	OperationStore ports.OperationStore
	CommandBus     *commandbus.CommandBus
	QueryBus       *querybus.QueryBus
	Mediator       *mediator.Mediator

	LocalEvents *messaging.LocalEventBus
	Events      ports.EventPublisher

	DynamicConfig *infraconfig.DynamicConfigManager
}

// BuildContainer assembles every collaborator needed to run the agent
// service. It takes the place of di.InitializeContainer.
func BuildContainer(ctx context.Context, infraCfg *infraconfig.Config) (*Container, error) {
	logger, err := observability.NewLogger(infraCfg.Environment)
	if err != nil {
		return nil, err
	}

	agentCfg, err := agentcfg.Load()
	if err != nil {
		return nil, err
	}

	ksgStore := ksg.NewStore()
	procedures := procedure.NewStore(ksgStore)
	registry := tools.NewRegistry()
	wm := workingmem.New()

	httpClient := &http.Client{Timeout: agentCfg.Defaults.ToolCallTimeout}
	llmClient := llm.NewHTTPClient(llmBaseURL(infraCfg), llmAPIKey(), agentCfg.Defaults.LLMChatTimeout)
	learningEngine := learning.NewEngine(ksgStore, llmClient)
	breaker := resilience.NewBreaker(resilience.DefaultBreakerConfig("agent-tools"), logger)

	queue := taskqueue.NewQueue(ksgStore)
	sched := scheduler.New(func(rule scheduler.Rule) error {
		return enqueueFromRule(queue, rule)
	}, nil)
	RegisterTools(registry, ksgStore, procedures, queue, httpClient, logger, sched)

	var detector formengine.Detector
	patterns := formengine.NewStore(ksgStore, agentCfg.KSGPatternReuseMinScore, detector)
	vault := formengine.NewVault(ksgStore)
	autofiller := formengine.NewAutofiller(patterns, vault, registry)
	RegisterFormAutofill(registry, autofiller)

	agentMetrics := observability.NewAgentMetrics(prometheus.DefaultRegisterer)

	loop := agent.NewLoop(agentCfg, ksgStore, procedures, registry, llmClient, wm, learningEngine, breaker, logger, agentMetrics)

	operationStore := memory.NewInMemoryOperationStore(1 * time.Hour)

	localEvents := messaging.NewLocalEventBus(logger)
	eventPublisher := buildEventPublisher(ctx, infraCfg, localEvents, logger)

	dynamicConfig, err := buildDynamicConfig(infraCfg, logger)
	if err != nil {
		return nil, err
	}

	commandBus := commandbus.NewCommandBus()
	queryBus := querybus.NewQueryBus()
	if err := queryBus.Register(queries.GetRunStatusQuery{}, queryhandlers.NewGetRunStatusHandler(operationStore, logger)); err != nil {
		return nil, err
	}
	dispatchHandler := commandhandlers.NewDispatchAgentRequestHandler(loop, operationStore, eventPublisher, logger)
	if err := commandBus.Register(commands.DispatchAgentRequestCommand{}, dispatchHandler); err != nil {
		return nil, err
	}

	cwMetrics := buildMetrics(ctx, infraCfg, logger)

	med := mediator.NewMediator(commandBus, queryBus, logger)
	med.AddBehavior(mediator.NewLoggingBehavior(logger))
	med.AddBehavior(mediator.NewValidationBehavior(logger))
	med.AddBehavior(mediator.NewMetricsBehavior(cwMetrics, logger))

	return &Container{
		InfraConfig:    infraCfg,
		AgentConfig:    agentCfg,
		Logger:         logger,
		KSGStore:       ksgStore,
		Procedures:     procedures,
		Tools:          registry,
		WorkingMem:     wm,
		Learning:       learningEngine,
		Breaker:        breaker,
		LLMClient:      llmClient,
		AgentLoop:      loop,
		OperationStore: operationStore,
		CommandBus:     commandBus,
		QueryBus:       queryBus,
		Mediator:       med,
		LocalEvents:    localEvents,
		Events:         eventPublisher,
		DynamicConfig:  dynamicConfig,
		Queue:          queue,
		Scheduler:      sched,
	}, nil
}

// enqueueFromRule is the scheduler's EnqueueFunc (C6): it never touches a
// tool directly, only ever turning a fired TimeRule into a queue.Enqueue
// call against the payload the rule was registered with (§4.6).
func enqueueFromRule(queue *taskqueue.Queue, rule scheduler.Rule) error {
	taskRef := valueobjects.NodeID{}
	if s, ok := rule.Payload["task_ref"].(string); ok && s != "" {
		id, err := valueobjects.NewNodeIDFromString(s)
		if err != nil {
			return err
		}
		taskRef = id
	}

	procedureID := valueobjects.NodeID{}
	if s, ok := rule.Payload["procedure_id"].(string); ok && s != "" {
		id, err := valueobjects.NewNodeIDFromString(s)
		if err != nil {
			return err
		}
		procedureID = id
	}

	priority := 0
	if p, ok := rule.Payload["priority"].(int); ok {
		priority = p
	}

	provenance := valueobjects.NewProvenance(valueobjects.SourceSystem, valueobjects.NewTraceID(), 1.0, time.Now())
	_, err := queue.Enqueue(valueobjects.NodeID{}, taskRef, procedureID, priority, time.Time{}, provenance)
	return err
}

// buildDynamicConfig wires a hot-reloading feature-flag/limits watcher when
// CONFIG_WATCH_PATH points at a readable JSON file, so operators can flip
// Features or RelationshipLimits without a redeploy. It is nil (not an
// error) when no path is configured.
func buildDynamicConfig(infraCfg *infraconfig.Config, logger *zap.Logger) (*infraconfig.DynamicConfigManager, error) {
	path := os.Getenv("CONFIG_WATCH_PATH")
	if path == "" {
		return nil, nil
	}

	manager, err := infraconfig.NewDynamicConfigManager(infraCfg, path, logger)
	if err != nil {
		logger.Warn("failed to start dynamic config watcher, continuing with static config", zap.Error(err))
		return nil, nil
	}
	if err := manager.Start(); err != nil {
		logger.Warn("failed to start dynamic config watcher, continuing with static config", zap.Error(err))
		return nil, nil
	}
	return manager, nil
}

// buildMetrics wires the mediator's CloudWatch metrics sink (§6.4's
// observability obligations, beyond the Prometheus counters internal/
// observability already exports for the agent loop itself). With no AWS
// region configured it still returns a usable *Metrics backed by a nil
// client, since every recorder method already no-ops on a nil client.
func buildMetrics(ctx context.Context, infraCfg *infraconfig.Config, logger *zap.Logger) *pkgobservability.Metrics {
	namespace := "AgentPrototype/" + infraCfg.Environment

	if infraCfg.AWSRegion == "" {
		return pkgobservability.NewMetrics(namespace, nil)
	}

	awsCfgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	awsCfg, err := awsConfig.LoadDefaultConfig(awsCfgCtx, awsConfig.WithRegion(infraCfg.AWSRegion))
	if err != nil {
		logger.Warn("failed to load AWS config, CloudWatch metrics disabled", zap.Error(err))
		return pkgobservability.NewMetrics(namespace, nil)
	}

	client := awscloudwatch.NewFromConfig(awsCfg)
	return pkgobservability.NewMetrics(namespace, client)
}

func llmBaseURL(cfg *infraconfig.Config) string {
	if url := os.Getenv("LLM_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:11434/v1"
}

func llmAPIKey() string {
	return os.Getenv("LLM_API_KEY")
}

// buildEventPublisher wires an EventBridge-backed publisher bridged to the
// local bus when an event bus name is configured, falling back to local
// delivery only (e.g. in a dev environment with no AWS credentials) when
// the EventBridge client can't be built.
func buildEventPublisher(ctx context.Context, infraCfg *infraconfig.Config, local *messaging.LocalEventBus, logger *zap.Logger) ports.EventPublisher {
	if infraCfg.EventBusName == "" {
		return messaging.NewEventDispatcher(local, nil, logger)
	}

	awsCfgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	awsCfg, err := awsConfig.LoadDefaultConfig(awsCfgCtx, awsConfig.WithRegion(infraCfg.AWSRegion))
	if err != nil {
		logger.Warn("failed to load AWS config, falling back to local event delivery only", zap.Error(err))
		return messaging.NewEventDispatcher(local, nil, logger)
	}

	client := awseventbridge.NewFromConfig(awsCfg, func(o *awseventbridge.Options) {
		o.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	})

	publisher := eventbridge.NewEventBridgePublisher(client, infraCfg.EventBusName, logger)
	return messaging.NewEventDispatcher(local, publisher, logger)
}
