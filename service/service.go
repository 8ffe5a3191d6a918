package service

import (
	"context"
	"time"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/inchronicle/go-stories/activity"
	"github.com/inchronicle/go-stories/billing"
	"github.com/inchronicle/go-stories/cluster"
	"github.com/inchronicle/go-stories/command"
	"github.com/inchronicle/go-stories/command/relink"
	"github.com/inchronicle/go-stories/demodata"
	"github.com/inchronicle/go-stories/network"
	"github.com/inchronicle/go-stories/onboarding"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/query"
	"github.com/inchronicle/go-stories/scope"
	"github.com/inchronicle/go-stories/star"
	"github.com/inchronicle/go-stories/story"
	"github.com/inchronicle/go-stories/workspace"
)

// Service is the entry point for go-stories. It assembles the repositories,
// managers, hooks, and command/query facades the host hands it into one place.
type Service struct {
	cfg           Config
	commands      Commands
	queries       Queries
	clusterMgr    *cluster.Manager
	storyMgr      *story.Manager
	workspaceMgr  *workspace.Manager
	networkMgr    *network.Manager
	billingMgr    *billing.Manager
	onboardingMgr *onboarding.Manager
	demoSeeder    command.DemoSeeder
	scopeGuard    scope.Guard
}

// Commands groups every command handler the service constructs.
type Commands struct {
	// accounts
	UserCreate           *command.UserCreateCommand
	UserUpdate           *command.UserUpdateCommand
	UserLifecycle        *command.UserLifecycleTransitionCommand
	BulkUserTransition   *command.BulkUserTransitionCommand
	RegistrationRequest  *command.UserRegistrationRequestCommand
	PasswordReset        *command.UserPasswordResetCommand
	PasswordResetRequest *command.UserPasswordResetRequestCommand
	PasswordResetConfirm *command.UserPasswordResetConfirmCommand
	TokenValidate        *command.UserTokenValidateCommand
	TokenConsume         *command.UserTokenConsumeCommand

	// activities
	ImportActivity       *command.ImportActivityCommand
	BulkImportActivities *command.BulkImportActivitiesCommand
	DeleteActivity       *command.DeleteActivityCommand

	// clusters
	GenerateClusters      *command.GenerateClustersCommand
	RenameCluster         *command.RenameClusterCommand
	MergeClusters         *command.MergeClustersCommand
	AddClusterActivity    *command.AddClusterActivityCommand
	RemoveClusterActivity *command.RemoveClusterActivityCommand
	DeleteCluster         *command.DeleteClusterCommand

	// stars and stories
	GenerateStar          *command.GenerateStarCommand
	GenerateStory         *command.GenerateStoryCommand
	RegenerateStory       *command.RegenerateStoryCommand
	CreateStoryFromWizard *command.CreateStoryFromWizardCommand
	EditStory             *command.EditStoryCommand
	PublishStory          *command.PublishStoryCommand
	UnpublishStory        *command.UnpublishStoryCommand
	SetStoryVisibility    *command.SetStoryVisibilityCommand
	DeleteStory           *command.DeleteStoryCommand

	// journal
	CreateJournalEntry *command.CreateJournalEntryCommand
	UpdateJournalEntry *command.UpdateJournalEntryCommand
	DeleteJournalEntry *command.DeleteJournalEntryCommand

	// wallet and billing
	ApplyWalletTransaction *command.ApplyWalletTransactionCommand
	CheckoutCredits        *command.CheckoutCreditsCommand
	ConfirmCheckout        *command.ConfirmCheckoutCommand

	// network
	FollowPeer        *command.FollowPeerCommand
	UnfollowPeer      *command.UnfollowPeerCommand
	AcceptFollow      *command.AcceptFollowCommand
	DeclineFollow     *command.DeclineFollowCommand
	RecordInteraction *command.RecordInteractionCommand

	// workspaces
	CreateWorkspace   *command.CreateWorkspaceCommand
	UpdateWorkspace   *command.UpdateWorkspaceCommand
	DeleteWorkspace   *command.DeleteWorkspaceCommand
	InviteToWorkspace *command.InviteToWorkspaceCommand
	AcceptInvitation  *command.AcceptInvitationCommand
	DeclineInvitation *command.DeclineInvitationCommand
	RevokeInvitation  *command.RevokeInvitationCommand
	ChangeMemberRole  *command.ChangeMemberRoleCommand
	RemoveMember      *command.RemoveMemberCommand

	// onboarding, profile, demo
	UpdateOnboarding   *command.UpdateOnboardingCommand
	CompleteOnboarding *command.CompleteOnboardingCommand
	SkipOnboarding     *command.SkipOnboardingCommand
	ResetOnboarding    *command.ResetOnboardingCommand
	UpsertProfile      *command.UpsertProfileCommand
	SeedDemoData       *command.SeedDemoDataCommand

	// audit
	LogAudit *command.AuditLogCommand
}

// Queries groups the read-model helpers.
type Queries struct {
	ActivityFeed       *query.ActivityFeedQuery
	ActivityStats      *query.ActivityStatsQuery
	ActivityDetail     *query.ActivityDetailQuery
	ClusterList        *query.ClusterListQuery
	ClusterDetail      *query.ClusterDetailQuery
	StoryList          *query.StoryListQuery
	StoryDetail        *query.StoryDetailQuery
	JournalList        *query.JournalListQuery
	JournalDetail      *query.JournalDetailQuery
	WalletBalance      *query.WalletBalanceQuery
	WalletTransactions *query.WalletTransactionsQuery
	ConnectionList     *query.ConnectionListQuery
	FollowerList       *query.FollowerListQuery
	NetworkStats       *query.NetworkStatsQuery
	Suggestions        *query.SuggestionListQuery
	WorkspaceList      *query.WorkspaceListQuery
	MemberList         *query.MemberListQuery
	InvitationList     *query.InvitationListQuery
	OnboardingStatus   *query.OnboardingStatusQuery
	ProfileDetail      *query.ProfileQuery
	AuditFeed          *query.AuditFeedQuery
	AuditStats         *query.AuditStatsQuery
}

// Config lists everything the service needs from the host: the bun.DB,
// repositories (cached or not), hooks, and the scope guard pieces.
type Config struct {
	AuthRepository      types.AuthRepository
	ActivityRepository  types.ToolActivityRepository
	ClusterRepository   types.ClusterRepository
	StoryRepository     types.StoryRepository
	JournalRepository   types.JournalRepository
	WalletRepository    types.WalletRepository
	NetworkRepository   types.NetworkRepository
	WorkspaceRepository types.WorkspaceRepository
	ProfileRepository   types.ProfileRepository
	AuditRepository     types.AuditRepository
	AuditSink           types.AuditSink
	OnboardingStore     types.OnboardingStore
	TokenRepository     types.UserTokenRepository
	ResetRepository     types.PasswordResetRepository

	// ClusterEngine and Synthesizer fall back to the in-process
	// implementations when omitted.
	ClusterEngine   types.ClusterEngine
	Synthesizer     types.StarSynthesizer
	BillingProvider types.BillingProvider
	CreditPackages  []types.CreditPackage
	Enricher        activity.ActivityEnricher
	SecureLinks     types.SecureLinkManager
	ScopeEnforcer   types.ScopeEnforcer
	Gate            featuregate.FeatureGate
	DemoSeeder      command.DemoSeeder

	PromotionPolicy    types.PromotionPolicy
	AccountPolicy      types.TransitionPolicy[types.LifecycleState]
	StarCost           int64
	OnboardingDefaults map[string]any

	Hooks               types.Hooks
	Clock               types.Clock
	IDGenerator         types.IDGenerator
	Logger              types.Logger
	ScopeResolver       types.ScopeResolver
	AuthorizationPolicy types.AuthorizationPolicy

	InviteTokenTTL   time.Duration
	InviteRoute      string
	ResetTokenTTL    time.Duration
	ResetRoute       string
	RegisterTokenTTL time.Duration
	RegisterRoute    string
}

// New assembles a Service from the supplied configuration.
func New(cfg Config) *Service {
	norm := normalizeConfig(cfg)

	s := &Service{
		cfg:        norm,
		scopeGuard: scope.Ensure(scope.NewGuard(norm.ScopeResolver, norm.AuthorizationPolicy)),
	}
	s.clusterMgr = buildClusterManager(norm)
	s.storyMgr = buildStoryManager(norm)
	s.workspaceMgr = buildWorkspaceManager(norm)
	s.networkMgr = buildNetworkManager(norm)
	s.billingMgr = buildBillingManager(norm)
	s.onboardingMgr = buildOnboardingManager(norm)
	s.demoSeeder = buildDemoSeeder(norm)
	s.commands = s.buildCommands()
	s.queries = s.buildQueries()
	return s
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = types.UUIDGenerator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	if cfg.AccountPolicy == nil {
		cfg.AccountPolicy = types.DefaultAccountTransitionPolicy()
	}
	if cfg.Synthesizer == nil {
		cfg.Synthesizer = star.NewSynthesizer(star.SynthesizerConfig{Clock: cfg.Clock})
	}
	return cfg
}

func buildClusterManager(cfg Config) *cluster.Manager {
	if cfg.ClusterRepository == nil || cfg.ActivityRepository == nil {
		return nil
	}
	mgr, err := cluster.NewManager(cluster.ManagerConfig{
		Clusters:   cfg.ClusterRepository,
		Activities: cfg.ActivityRepository,
		Engine:     cfg.ClusterEngine,
		Clock:      cfg.Clock,
		Hooks:      cfg.Hooks,
	})
	if err != nil {
		cfg.Logger.Error("go-stories: cluster manager initialization failed", err)
		return nil
	}
	return mgr
}

func buildStoryManager(cfg Config) *story.Manager {
	if cfg.StoryRepository == nil || cfg.ClusterRepository == nil || cfg.ActivityRepository == nil {
		return nil
	}
	mgr, err := story.NewManager(story.ManagerConfig{
		Stories:     cfg.StoryRepository,
		Clusters:    cfg.ClusterRepository,
		Activities:  cfg.ActivityRepository,
		Synthesizer: cfg.Synthesizer,
		Wallet:      cfg.WalletRepository,
		StarCost:    cfg.StarCost,
		Clock:       cfg.Clock,
		Hooks:       cfg.Hooks,
	})
	if err != nil {
		cfg.Logger.Error("go-stories: story manager initialization failed", err)
		return nil
	}
	return mgr
}

func buildWorkspaceManager(cfg Config) *workspace.Manager {
	if cfg.WorkspaceRepository == nil {
		return nil
	}
	mgr, err := workspace.NewManager(workspace.ManagerConfig{
		Workspaces: cfg.WorkspaceRepository,
		Tokens:     cfg.TokenRepository,
		Links:      cfg.SecureLinks,
		Gate:       cfg.Gate,
		Hooks:      cfg.Hooks,
		Clock:      cfg.Clock,
		IDGen:      cfg.IDGenerator,
		Logger:     cfg.Logger,
		TokenTTL:   cfg.InviteTokenTTL,
		Route:      cfg.InviteRoute,
	})
	if err != nil {
		cfg.Logger.Error("go-stories: workspace manager initialization failed", err)
		return nil
	}
	return mgr
}

func buildNetworkManager(cfg Config) *network.Manager {
	if cfg.NetworkRepository == nil {
		return nil
	}
	mgr, err := network.NewManager(network.ManagerConfig{
		Network: cfg.NetworkRepository,
		Policy:  cfg.PromotionPolicy,
		Hooks:   cfg.Hooks,
		Clock:   cfg.Clock,
		Logger:  cfg.Logger,
	})
	if err != nil {
		cfg.Logger.Error("go-stories: network manager initialization failed", err)
		return nil
	}
	return mgr
}

func buildBillingManager(cfg Config) *billing.Manager {
	if cfg.BillingProvider == nil || cfg.WalletRepository == nil {
		return nil
	}
	mgr, err := billing.NewManager(billing.ManagerConfig{
		Provider: cfg.BillingProvider,
		Wallet:   cfg.WalletRepository,
		Packages: cfg.CreditPackages,
		Hooks:    cfg.Hooks,
		Clock:    cfg.Clock,
	})
	if err != nil {
		cfg.Logger.Error("go-stories: billing manager initialization failed", err)
		return nil
	}
	return mgr
}

func buildOnboardingManager(cfg Config) *onboarding.Manager {
	if cfg.OnboardingStore == nil {
		return nil
	}
	mgr, err := onboarding.NewManager(onboarding.ManagerConfig{
		Store:    cfg.OnboardingStore,
		Defaults: cfg.OnboardingDefaults,
		Hooks:    cfg.Hooks,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger,
	})
	if err != nil {
		cfg.Logger.Error("go-stories: onboarding manager initialization failed", err)
		return nil
	}
	return mgr
}

func buildDemoSeeder(cfg Config) command.DemoSeeder {
	if cfg.DemoSeeder != nil {
		return cfg.DemoSeeder
	}
	if cfg.ActivityRepository == nil || cfg.ClusterRepository == nil || cfg.StoryRepository == nil {
		return nil
	}
	seeder, err := demodata.NewSeeder(demodata.SeederConfig{
		Activities: cfg.ActivityRepository,
		Clusters:   cfg.ClusterRepository,
		Stories:    cfg.StoryRepository,
		Logger:     cfg.Logger,
	})
	if err != nil {
		cfg.Logger.Error("go-stories: demo seeder initialization failed", err)
		return nil
	}
	return seeder
}

// Commands hands back the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries hands back the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// Ready tells callers whether the mandatory dependencies are present.
func (s *Service) Ready() bool {
	return s != nil &&
		s.cfg.ActivityRepository != nil &&
		s.cfg.AuditSink != nil &&
		s.cfg.WalletRepository != nil &&
		s.cfg.JournalRepository != nil &&
		s.cfg.ProfileRepository != nil &&
		s.clusterMgr != nil &&
		s.storyMgr != nil &&
		s.workspaceMgr != nil &&
		s.networkMgr != nil &&
		s.onboardingMgr != nil
}

// HealthCheck surfaces missing configuration with the matching sentinel so
// upstream transports (REST/jobs) can report which dependency is absent.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s == nil {
		return types.ErrServiceNotReady
	}
	if s.cfg.ActivityRepository == nil {
		return types.ErrMissingActivityRepository
	}
	if s.cfg.AuditSink == nil {
		return types.ErrMissingAuditSink
	}
	if s.cfg.ClusterRepository == nil {
		return types.ErrMissingClusterRepository
	}
	if s.cfg.StoryRepository == nil {
		return types.ErrMissingStoryRepository
	}
	if s.cfg.JournalRepository == nil {
		return types.ErrMissingJournalRepository
	}
	if s.cfg.WalletRepository == nil {
		return types.ErrMissingWalletRepository
	}
	if s.cfg.NetworkRepository == nil {
		return types.ErrMissingNetworkRepository
	}
	if s.cfg.WorkspaceRepository == nil {
		return types.ErrMissingWorkspaceRepository
	}
	if s.cfg.OnboardingStore == nil {
		return types.ErrMissingOnboardingStore
	}
	if s.cfg.ProfileRepository == nil {
		return types.ErrMissingProfileRepository
	}
	if !s.Ready() {
		return types.ErrServiceNotReady
	}
	return nil
}

// ScopeGuard returns the guard the commands run under, so HTTP adapters can
// enforce the same resolver/policy pair.
func (s *Service) ScopeGuard() scope.Guard {
	if s == nil {
		return scope.NopGuard()
	}
	return scope.Ensure(s.scopeGuard)
}

// AuditSink returns the configured sink so transports can emit audit records
// for auxiliary workflows (e.g. CRUD controllers).
func (s *Service) AuditSink() types.AuditSink {
	if s == nil {
		return nil
	}
	return s.cfg.AuditSink
}

// NewRelinkCommand builds a cron relink command bound to the service's
// activity repository. Hosts supply the hint source, typically their ingest
// normalizer chain, plus any schedule overrides.
func (s *Service) NewRelinkCommand(cfg relink.Config) *relink.Command {
	if s != nil {
		if cfg.Repository == nil {
			cfg.Repository = s.cfg.ActivityRepository
		}
		if cfg.Clock == nil {
			cfg.Clock = s.cfg.Clock
		}
		if cfg.Logger == nil {
			cfg.Logger = s.cfg.Logger
		}
	}
	return relink.New(cfg)
}

func (s *Service) buildCommands() Commands {
	lifecycle := command.NewUserLifecycleTransitionCommand(command.LifecycleCommandConfig{
		Repository: s.cfg.AuthRepository,
		Policy:     s.cfg.AccountPolicy,
		Clock:      s.cfg.Clock,
		Logger:     s.cfg.Logger,
		Hooks:      s.cfg.Hooks,
		Audit:      s.cfg.AuditSink,
		ScopeGuard: s.scopeGuard,
	})
	passwordReset := command.NewUserPasswordResetCommand(command.PasswordResetCommandConfig{
		Repository: s.cfg.AuthRepository,
		Clock:      s.cfg.Clock,
		Audit:      s.cfg.AuditSink,
		Hooks:      s.cfg.Hooks,
		Logger:     s.cfg.Logger,
		ScopeGuard: s.scopeGuard,
	})
	importActivity := command.NewImportActivityCommand(command.ImportActivityConfig{
		Repository: s.cfg.ActivityRepository,
		Enricher:   s.cfg.Enricher,
		Clock:      s.cfg.Clock,
		Audit:      s.cfg.AuditSink,
		Hooks:      s.cfg.Hooks,
		ScopeGuard: s.scopeGuard,
	})
	clusterCfg := command.ClusterCommandConfig{
		Manager:    s.clusterMgr,
		Clock:      s.cfg.Clock,
		Audit:      s.cfg.AuditSink,
		Hooks:      s.cfg.Hooks,
		ScopeGuard: s.scopeGuard,
	}
	storyCfg := command.StoryCommandConfig{
		Manager:    s.storyMgr,
		Gate:       s.cfg.Gate,
		Clock:      s.cfg.Clock,
		Audit:      s.cfg.AuditSink,
		Hooks:      s.cfg.Hooks,
		ScopeGuard: s.scopeGuard,
	}
	journalCfg := command.JournalCommandConfig{
		Repository: s.cfg.JournalRepository,
		Clock:      s.cfg.Clock,
		Audit:      s.cfg.AuditSink,
		Hooks:      s.cfg.Hooks,
		ScopeGuard: s.scopeGuard,
	}
	billingCfg := command.BillingCommandConfig{
		Manager:    s.billingMgr,
		Clock:      s.cfg.Clock,
		Audit:      s.cfg.AuditSink,
		Hooks:      s.cfg.Hooks,
		ScopeGuard: s.scopeGuard,
	}
	networkCfg := command.NetworkCommandConfig{
		Manager:    s.networkMgr,
		Clock:      s.cfg.Clock,
		Audit:      s.cfg.AuditSink,
		Hooks:      s.cfg.Hooks,
		ScopeGuard: s.scopeGuard,
	}
	workspaceCfg := command.WorkspaceCommandConfig{
		Manager:    s.workspaceMgr,
		Clock:      s.cfg.Clock,
		Audit:      s.cfg.AuditSink,
		Hooks:      s.cfg.Hooks,
		ScopeGuard: s.scopeGuard,
	}
	onboardingCfg := command.OnboardingCommandConfig{
		Manager:    s.onboardingMgr,
		Clock:      s.cfg.Clock,
		Audit:      s.cfg.AuditSink,
		Hooks:      s.cfg.Hooks,
		ScopeGuard: s.scopeGuard,
	}

	return Commands{
		UserCreate: command.NewUserCreateCommand(command.UserCreateCommandConfig{
			Repository: s.cfg.AuthRepository,
			Clock:      s.cfg.Clock,
			Audit:      s.cfg.AuditSink,
			Hooks:      s.cfg.Hooks,
			Logger:     s.cfg.Logger,
			ScopeGuard: s.scopeGuard,
		}),
		UserUpdate: command.NewUserUpdateCommand(command.UserUpdateCommandConfig{
			Repository: s.cfg.AuthRepository,
			Policy:     s.cfg.AccountPolicy,
			Clock:      s.cfg.Clock,
			Audit:      s.cfg.AuditSink,
			Hooks:      s.cfg.Hooks,
			Logger:     s.cfg.Logger,
			ScopeGuard: s.scopeGuard,
		}),
		UserLifecycle:      lifecycle,
		BulkUserTransition: command.NewBulkUserTransitionCommand(lifecycle),
		RegistrationRequest: command.NewUserRegistrationRequestCommand(command.RegistrationRequestConfig{
			Repository:      s.cfg.AuthRepository,
			TokenRepository: s.cfg.TokenRepository,
			SecureLinks:     s.cfg.SecureLinks,
			Gate:            s.cfg.Gate,
			Clock:           s.cfg.Clock,
			IDGen:           s.cfg.IDGenerator,
			Audit:           s.cfg.AuditSink,
			Hooks:           s.cfg.Hooks,
			Logger:          s.cfg.Logger,
			TokenTTL:        s.cfg.RegisterTokenTTL,
			ScopeGuard:      s.scopeGuard,
			Route:           s.cfg.RegisterRoute,
		}),
		PasswordReset: passwordReset,
		PasswordResetRequest: command.NewUserPasswordResetRequestCommand(command.PasswordResetRequestConfig{
			Repository:      s.cfg.AuthRepository,
			ResetRepository: s.cfg.ResetRepository,
			SecureLinks:     s.cfg.SecureLinks,
			Gate:            s.cfg.Gate,
			Clock:           s.cfg.Clock,
			IDGen:           s.cfg.IDGenerator,
			Audit:           s.cfg.AuditSink,
			Hooks:           s.cfg.Hooks,
			Logger:          s.cfg.Logger,
			TokenTTL:        s.cfg.ResetTokenTTL,
			Route:           s.cfg.ResetRoute,
		}),
		PasswordResetConfirm: command.NewUserPasswordResetConfirmCommand(command.PasswordResetConfirmConfig{
			ResetRepository: s.cfg.ResetRepository,
			SecureLinks:     s.cfg.SecureLinks,
			ResetCommand:    passwordReset,
			Clock:           s.cfg.Clock,
			ScopeEnforcer:   s.cfg.ScopeEnforcer,
			Logger:          s.cfg.Logger,
		}),
		TokenValidate: command.NewUserTokenValidateCommand(command.TokenValidateConfig{
			TokenRepository: s.cfg.TokenRepository,
			SecureLinks:     s.cfg.SecureLinks,
			Clock:           s.cfg.Clock,
			ScopeEnforcer:   s.cfg.ScopeEnforcer,
		}),
		TokenConsume: command.NewUserTokenConsumeCommand(command.TokenConsumeConfig{
			TokenRepository: s.cfg.TokenRepository,
			SecureLinks:     s.cfg.SecureLinks,
			Clock:           s.cfg.Clock,
			ScopeEnforcer:   s.cfg.ScopeEnforcer,
			Audit:           s.cfg.AuditSink,
			Hooks:           s.cfg.Hooks,
		}),

		ImportActivity:       importActivity,
		BulkImportActivities: command.NewBulkImportActivitiesCommand(importActivity),
		DeleteActivity: command.NewDeleteActivityCommand(command.DeleteActivityConfig{
			Repository: s.cfg.ActivityRepository,
			Clock:      s.cfg.Clock,
			Audit:      s.cfg.AuditSink,
			Hooks:      s.cfg.Hooks,
			ScopeGuard: s.scopeGuard,
		}),

		GenerateClusters:      command.NewGenerateClustersCommand(clusterCfg),
		RenameCluster:         command.NewRenameClusterCommand(clusterCfg),
		MergeClusters:         command.NewMergeClustersCommand(clusterCfg),
		AddClusterActivity:    command.NewAddClusterActivityCommand(clusterCfg),
		RemoveClusterActivity: command.NewRemoveClusterActivityCommand(clusterCfg),
		DeleteCluster:         command.NewDeleteClusterCommand(clusterCfg),

		GenerateStar: command.NewGenerateStarCommand(command.GenerateStarConfig{
			Synthesizer: s.cfg.Synthesizer,
			Clusters:    s.cfg.ClusterRepository,
			Activities:  s.cfg.ActivityRepository,
			Wallet:      s.cfg.WalletRepository,
			StarCost:    s.cfg.StarCost,
			Clock:       s.cfg.Clock,
			Audit:       s.cfg.AuditSink,
			Hooks:       s.cfg.Hooks,
			ScopeGuard:  s.scopeGuard,
		}),
		GenerateStory:         command.NewGenerateStoryCommand(storyCfg),
		RegenerateStory:       command.NewRegenerateStoryCommand(storyCfg),
		CreateStoryFromWizard: command.NewCreateStoryFromWizardCommand(storyCfg),
		EditStory:             command.NewEditStoryCommand(storyCfg),
		PublishStory:          command.NewPublishStoryCommand(storyCfg),
		UnpublishStory:        command.NewUnpublishStoryCommand(storyCfg),
		SetStoryVisibility:    command.NewSetStoryVisibilityCommand(storyCfg),
		DeleteStory:           command.NewDeleteStoryCommand(storyCfg),

		CreateJournalEntry: command.NewCreateJournalEntryCommand(journalCfg),
		UpdateJournalEntry: command.NewUpdateJournalEntryCommand(journalCfg),
		DeleteJournalEntry: command.NewDeleteJournalEntryCommand(journalCfg),

		ApplyWalletTransaction: command.NewApplyWalletTransactionCommand(command.ApplyWalletTransactionConfig{
			Wallet:     s.cfg.WalletRepository,
			Clock:      s.cfg.Clock,
			Audit:      s.cfg.AuditSink,
			Hooks:      s.cfg.Hooks,
			ScopeGuard: s.scopeGuard,
		}),
		CheckoutCredits: command.NewCheckoutCreditsCommand(billingCfg),
		ConfirmCheckout: command.NewConfirmCheckoutCommand(billingCfg),

		FollowPeer:        command.NewFollowPeerCommand(networkCfg),
		UnfollowPeer:      command.NewUnfollowPeerCommand(networkCfg),
		AcceptFollow:      command.NewAcceptFollowCommand(networkCfg),
		DeclineFollow:     command.NewDeclineFollowCommand(networkCfg),
		RecordInteraction: command.NewRecordInteractionCommand(networkCfg),

		CreateWorkspace:   command.NewCreateWorkspaceCommand(workspaceCfg),
		UpdateWorkspace:   command.NewUpdateWorkspaceCommand(workspaceCfg),
		DeleteWorkspace:   command.NewDeleteWorkspaceCommand(workspaceCfg),
		InviteToWorkspace: command.NewInviteToWorkspaceCommand(workspaceCfg),
		AcceptInvitation:  command.NewAcceptInvitationCommand(workspaceCfg),
		DeclineInvitation: command.NewDeclineInvitationCommand(workspaceCfg),
		RevokeInvitation:  command.NewRevokeInvitationCommand(workspaceCfg),
		ChangeMemberRole:  command.NewChangeMemberRoleCommand(workspaceCfg),
		RemoveMember:      command.NewRemoveMemberCommand(workspaceCfg),

		UpdateOnboarding:   command.NewUpdateOnboardingCommand(onboardingCfg),
		CompleteOnboarding: command.NewCompleteOnboardingCommand(onboardingCfg),
		SkipOnboarding:     command.NewSkipOnboardingCommand(onboardingCfg),
		ResetOnboarding:    command.NewResetOnboardingCommand(onboardingCfg),
		UpsertProfile: command.NewUpsertProfileCommand(command.ProfileCommandConfig{
			Repository: s.cfg.ProfileRepository,
			Clock:      s.cfg.Clock,
			Audit:      s.cfg.AuditSink,
			Hooks:      s.cfg.Hooks,
			ScopeGuard: s.scopeGuard,
		}),
		SeedDemoData: command.NewSeedDemoDataCommand(command.SeedDemoDataConfig{
			Seeder:     s.demoSeeder,
			Gate:       s.cfg.Gate,
			Clock:      s.cfg.Clock,
			Audit:      s.cfg.AuditSink,
			Hooks:      s.cfg.Hooks,
			ScopeGuard: s.scopeGuard,
		}),

		LogAudit: command.NewAuditLogCommand(command.AuditLogConfig{
			Sink:  s.cfg.AuditSink,
			Hooks: s.cfg.Hooks,
			Clock: s.cfg.Clock,
		}),
	}
}

func (s *Service) buildQueries() Queries {
	return Queries{
		ActivityFeed:       query.NewActivityFeedQuery(s.cfg.ActivityRepository, s.scopeGuard),
		ActivityStats:      query.NewActivityStatsQuery(s.cfg.ActivityRepository, s.scopeGuard),
		ActivityDetail:     query.NewActivityDetailQuery(s.cfg.ActivityRepository, s.scopeGuard),
		ClusterList:        query.NewClusterListQuery(s.cfg.ClusterRepository, s.scopeGuard),
		ClusterDetail:      query.NewClusterDetailQuery(s.cfg.ClusterRepository, s.cfg.ActivityRepository, s.scopeGuard),
		StoryList:          query.NewStoryListQuery(s.cfg.StoryRepository, s.scopeGuard),
		StoryDetail:        query.NewStoryDetailQuery(s.cfg.StoryRepository, s.scopeGuard),
		JournalList:        query.NewJournalListQuery(s.cfg.JournalRepository, s.scopeGuard),
		JournalDetail:      query.NewJournalDetailQuery(s.cfg.JournalRepository, s.scopeGuard),
		WalletBalance:      query.NewWalletBalanceQuery(s.cfg.WalletRepository, s.scopeGuard),
		WalletTransactions: query.NewWalletTransactionsQuery(s.cfg.WalletRepository, s.scopeGuard),
		ConnectionList:     query.NewConnectionListQuery(s.cfg.NetworkRepository, s.scopeGuard),
		FollowerList:       query.NewFollowerListQuery(s.cfg.NetworkRepository, s.scopeGuard),
		NetworkStats:       query.NewNetworkStatsQuery(s.cfg.NetworkRepository, s.scopeGuard),
		Suggestions:        query.NewSuggestionListQuery(s.cfg.NetworkRepository, s.cfg.Logger, s.scopeGuard),
		WorkspaceList:      query.NewWorkspaceListQuery(s.cfg.WorkspaceRepository, s.scopeGuard),
		MemberList:         query.NewMemberListQuery(s.cfg.WorkspaceRepository, s.scopeGuard),
		InvitationList:     query.NewInvitationListQuery(s.cfg.WorkspaceRepository, s.scopeGuard),
		OnboardingStatus:   query.NewOnboardingStatusQuery(s.onboardingMgr, s.scopeGuard),
		ProfileDetail:      query.NewProfileQuery(s.cfg.ProfileRepository, s.scopeGuard),
		AuditFeed:          query.NewAuditFeedQuery(s.cfg.AuditRepository, s.scopeGuard),
		AuditStats:         query.NewAuditStatsQuery(s.cfg.AuditRepository, s.scopeGuard),
	}
}
