// Package mocks provides generated mock implementations for testing.
//
// Mocks are produced with go.uber.org/mock (gomock) from go:generate
// directives below. Regenerate after interface changes with:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	verifier := mocks.NewMockVerifier(ctrl)
//	verifier.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(result, nil)
package mocks

// Mock for the per-source Verifier interface used by the dispatch layer.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=verifier_mock.go github.com/caretrack/licensure/internal/sources Verifier
