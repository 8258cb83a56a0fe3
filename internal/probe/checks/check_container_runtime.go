package checks

import (
	"context"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/probe"
)

type ContainerRuntimeCheck struct{}

func (c *ContainerRuntimeCheck) ID() string {
	return "container-runtime"
}

func (c *ContainerRuntimeCheck) Title() string {
	return "Container Runtime"
}

func (c *ContainerRuntimeCheck) Description() string {
	return "Requires the docker engine and its compose subcommand."
}

func (c *ContainerRuntimeCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepContainerRuntime}
}

func (c *ContainerRuntimeCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	rt, res := fact[*models.ContainerRuntime](dc, c.ID(), data.DepContainerRuntime)
	if res != nil {
		return *res, nil
	}
	switch {
	case !rt.EnginePresent:
		return probe.Fail(c.ID(), "docker is not installed").WithCause(probe.CauseDockerMissing), nil
	case !rt.ComposePresent:
		return probe.Fail(c.ID(), "docker compose is not available").
			WithCause(probe.CauseComposeMissing).
			WithEvidence("engine", rt.EngineVersion), nil
	default:
		return probe.Pass(c.ID(), rt.ComposeVersion).
			WithEvidence("engine", rt.EngineVersion).
			WithEvidence("compose", rt.ComposeVersion), nil
	}
}

func init() {
	probe.Register(&ContainerRuntimeCheck{})
}
