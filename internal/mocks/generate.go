// Package mocks provides gomock implementations of the repository ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockRoleAssignmentRepository(ctrl)
//	repo.EXPECT().Get(gomock.Any(), "jdoe").Return(nil, data.ErrRoleAssignmentNotFound)
package mocks

// Get, List, Create, Upsert, Delete, CountByRole
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=role_assignment_repository_mock.go github.com/eelab/labdesk/internal/ports RoleAssignmentRepository

// Insert, List, DeleteOlderThan
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=access_event_repository_mock.go github.com/eelab/labdesk/internal/ports AccessEventRepository
