package ecplugin

import "testing"

func TestPluginInitRejectsDuplicateName(t *testing.T) {
	r := NewRegistry(nil)
	factory := func() Core { return &fakeCore{k: 4, m: 5, alignment: 4} }

	if err := r.PluginInit("sizeceph", factory); err != nil {
		t.Fatalf("first PluginInit: %v", err)
	}
	if err := r.PluginInit("sizeceph", factory); err == nil {
		t.Error("second PluginInit with the same name should fail")
	}
}

func TestFactoryBuildsInitializedFacade(t *testing.T) {
	r := NewRegistry(nil)
	err := r.PluginInit("sizeceph", func() Core { return &fakeCore{k: 4, m: 5, alignment: 4} })
	if err != nil {
		t.Fatalf("PluginInit: %v", err)
	}

	facade, err := r.Factory("/plugins", "sizeceph", Profile{"k": "4", "m": "5"}, nil)
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	if facade.GetDataChunkCount() != 4 {
		t.Errorf("GetDataChunkCount() = %d, want 4", facade.GetDataChunkCount())
	}
}

func TestFactoryUnknownNameIsNotFound(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Factory("/plugins", "does-not-exist", Profile{}, nil)
	if err == nil {
		t.Error("Factory with unregistered name should fail")
	}
}
