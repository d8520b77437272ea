package app

import (
	"github.com/vk/matrixci/internal/registry"
	"github.com/vk/matrixci/modules/env_vars"
	"github.com/vk/matrixci/modules/exec"
	"github.com/vk/matrixci/modules/http_request"
	"github.com/vk/matrixci/modules/print"
)

// coreModules returns the built-in action modules registered by default.
func coreModules() []registry.Module {
	return []registry.Module{
		&exec.Module{},
		&print.Module{},
		&env_vars.Module{},
		&http_request.Module{},
	}
}
