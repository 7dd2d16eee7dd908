package cloudapi

import (
	"context"
	"sync"
)

// FakeComputeAPI is an in-memory ComputeAPI for tests. It records
// mutating calls for assertions and enforces the duplicate-name
// contract of the real boundary.
type FakeComputeAPI struct {
	mu        sync.Mutex
	groups    map[string]GroupDescriptor
	templates map[string]LaunchTemplateDescriptor

	// Errors to inject per operation name; consumed on every call.
	FailOn map[string]error

	// CreateGroupCalls, UpdateGroupCalls, and CreateTemplateCalls track
	// mutations for assertions.
	CreateGroupCalls    []GroupDescriptor
	UpdateGroupCalls    []FakeGroupUpdate
	CreateTemplateCalls []LaunchTemplateDescriptor
}

// FakeGroupUpdate is one recorded UpdateGroup call.
type FakeGroupUpdate struct {
	Name               string
	LaunchTemplateName string
	DesiredCapacity    int32
}

// NewFakeComputeAPI creates an empty fake compute boundary.
func NewFakeComputeAPI() *FakeComputeAPI {
	return &FakeComputeAPI{
		groups:    make(map[string]GroupDescriptor),
		templates: make(map[string]LaunchTemplateDescriptor),
		FailOn:    make(map[string]error),
	}
}

// AddGroup seeds a group into the fake fleet.
func (f *FakeComputeAPI) AddGroup(desc GroupDescriptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[desc.Name] = desc
}

// AddLaunchTemplate seeds a launch template into the fake fleet.
func (f *FakeComputeAPI) AddLaunchTemplate(desc LaunchTemplateDescriptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates[desc.Name] = desc
}

// Group returns a copy of the named group, for test assertions.
func (f *FakeComputeAPI) Group(name string) (GroupDescriptor, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	desc, ok := f.groups[name]
	return desc, ok
}

func (f *FakeComputeAPI) injected(op string) error {
	if err, ok := f.FailOn[op]; ok {
		return err
	}
	return nil
}

func (f *FakeComputeAPI) DescribeGroups(ctx context.Context) ([]GroupDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("DescribeGroups"); err != nil {
		return nil, err
	}
	out := make([]GroupDescriptor, 0, len(f.groups))
	for _, desc := range f.groups {
		out = append(out, desc)
	}
	return out, nil
}

func (f *FakeComputeAPI) DescribeLaunchTemplates(ctx context.Context) ([]LaunchTemplateDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("DescribeLaunchTemplates"); err != nil {
		return nil, err
	}
	out := make([]LaunchTemplateDescriptor, 0, len(f.templates))
	for _, desc := range f.templates {
		out = append(out, desc)
	}
	return out, nil
}

func (f *FakeComputeAPI) CreateLaunchTemplate(ctx context.Context, desc LaunchTemplateDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("CreateLaunchTemplate"); err != nil {
		return err
	}
	f.CreateTemplateCalls = append(f.CreateTemplateCalls, desc)
	if _, exists := f.templates[desc.Name]; exists {
		return ErrAlreadyExists
	}
	f.templates[desc.Name] = desc
	return nil
}

func (f *FakeComputeAPI) CreateGroup(ctx context.Context, desc GroupDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("CreateGroup"); err != nil {
		return err
	}
	f.CreateGroupCalls = append(f.CreateGroupCalls, desc)
	if _, exists := f.groups[desc.Name]; exists {
		return ErrAlreadyExists
	}
	f.groups[desc.Name] = desc
	return nil
}

func (f *FakeComputeAPI) UpdateGroup(ctx context.Context, name string, launchTemplateName string, desiredCapacity int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("UpdateGroup"); err != nil {
		return err
	}
	f.UpdateGroupCalls = append(f.UpdateGroupCalls, FakeGroupUpdate{
		Name:               name,
		LaunchTemplateName: launchTemplateName,
		DesiredCapacity:    desiredCapacity,
	})
	desc, ok := f.groups[name]
	if !ok {
		return External("UpdateGroup", ErrNotReady)
	}
	desc.LaunchTemplateName = launchTemplateName
	desc.DesiredCapacity = desiredCapacity
	f.groups[name] = desc
	return nil
}

// Compile-time interface check.
var _ ComputeAPI = (*FakeComputeAPI)(nil)
