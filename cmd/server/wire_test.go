package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	passstore "mobilid/internal/pass/store"
	regstore "mobilid/internal/registration/store"
	"mobilid/pkg/platform/tx"
	"mobilid/pkg/testutil"
)

func TestHealthWithoutBackends(t *testing.T) {
	rr := testutil.DoRequest(healthHandler(nil, nil), testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestStoresFallBackToMemory(t *testing.T) {
	st := newStores(nil)
	assert.IsType(t, &passstore.InMemoryStore{}, st.passes)
	assert.IsType(t, &regstore.InMemoryStore{}, st.directory)
	assert.IsType(t, &tx.Sharded{}, st.tx)
}
