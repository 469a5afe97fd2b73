package ecplugin

import (
	"sync"

	"go.uber.org/zap"
)

// CoreFactory builds a fresh, uninitialized Core for one plugin technique.
type CoreFactory func() Core

// Registry implements the host's plugin registry (spec §6 "plugin_init"):
// factories are registered under a name, and Factory instantiates +
// initializes the named technique's codec, wrapping it in a Facade.
type Registry struct {
	mu        sync.Mutex
	factories map[string]CoreFactory
	log       *zap.Logger
}

// NewRegistry returns an empty registry. log may be nil.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{factories: make(map[string]CoreFactory), log: log}
}

// PluginVersion returns the host's build version string (spec §6
// "plugin_version"). This plugin reports its own module version since the
// host's build version is an external collaborator outside this module's
// scope (spec §1).
func (r *Registry) PluginVersion() string { return pluginVersion }

const pluginVersion = "sizeceph-plugin/1.0"

// PluginInit registers factory under name (spec §6 "plugin_init"). It
// returns Invalid on a duplicate name, mirroring the host registry's
// "non-zero on duplicate" contract.
func (r *Registry) PluginInit(name string, factory CoreFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return NewError(Invalid, "plugin %q already registered", name)
	}
	r.factories[name] = factory
	r.log.Info("plugin registered", zap.String("name", name))
	return nil
}

// Factory instantiates the codec registered under name, calls Init(profile),
// and on failure destroys the instance and propagates the status (spec §6
// "factory"). directory names the host's plugin load directory; this
// module's codecs do not consult it (their native library search order is
// independent, spec §6), but it is threaded through for parity with the
// host contract and for future techniques that might.
func (r *Registry) Factory(directory string, name string, profile Profile, ruleHost RuleHost) (*Facade, error) {
	r.mu.Lock()
	newCore, ok := r.factories[name]
	r.mu.Unlock()
	if !ok {
		return nil, NewError(NotFound, "no plugin registered under %q", name)
	}

	core := newCore()
	if err := core.Init(profile); err != nil {
		r.log.Warn("plugin factory: init failed", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return NewFacade(core, profile, ruleHost, r.log), nil
}
