// label.go manages the tmu.* container labels.
//
// Labels are the only persistent state tmuctl keeps. Everything needed
// to find a stack's containers, group them, and diagnose them is
// stamped onto the containers themselves at creation time and read back
// through the Engine API. There is no state file to drift out of sync
// with reality.
package docker

import (
	"fmt"
	"strings"

	"github.com/jude-san/TMU-app/internal/model"
)

// Label keys for stack metadata. The tmu. prefix namespaces them away
// from Compose's own com.docker.compose.* labels and anything the
// user's images declare.
const (
	// LabelPrefix namespaces all tmuctl labels.
	LabelPrefix = "tmu."

	// LabelManagedBy marks a container as created by tmuctl. Discovery
	// filters on this label, so tmuctl never touches foreign containers.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelStack holds the stack name (the Compose project name).
	LabelStack = LabelPrefix + "stack"

	// LabelStackID holds the deploy config UUID.
	LabelStackID = LabelPrefix + "stack-id"

	// LabelRole holds the service's application tier.
	LabelRole = LabelPrefix + "role"

	// LabelProjectPath holds the absolute project directory the stack
	// was deployed from. Orphan detection checks it still exists.
	LabelProjectPath = LabelPrefix + "project-path"
)

// ManagedByValue is the value of LabelManagedBy on containers created
// by this tool.
const ManagedByValue = "tmuctl"

// composeServiceLabel is set by Docker Compose on every container it
// creates; it names the service the container belongs to.
const composeServiceLabel = "com.docker.compose.service"

// BuildServiceLabels constructs the label set for one service's
// container. These go into the generated Compose manifest, so the
// engine applies them at creation time.
func BuildServiceLabels(stackName, stackID, projectPath string, role model.ServiceRole) map[string]string {
	return map[string]string{
		LabelManagedBy:   ManagedByValue,
		LabelStack:       stackName,
		LabelStackID:     stackID,
		LabelRole:        role.String(),
		LabelProjectPath: projectPath,
	}
}

// ParseStackLabels reconstructs stack metadata from a container's
// labels.
//
// All required keys are checked before returning, so one error lists
// every missing label instead of revealing them one run at a time.
// Containers that fail this parse were not created by a compatible
// tmuctl version.
func ParseStackLabels(labels map[string]string) (*model.StackLabels, error) {
	required := []string{LabelStack, LabelStackID, LabelRole, LabelProjectPath}

	var missing []string
	for _, key := range required {
		if labels[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("container is missing required labels: %s", strings.Join(missing, ", "))
	}

	role, err := model.ParseServiceRole(labels[LabelRole])
	if err != nil {
		return nil, fmt.Errorf("container has invalid %s label: %w", LabelRole, err)
	}

	return &model.StackLabels{
		Stack:       labels[LabelStack],
		StackID:     labels[LabelStackID],
		ProjectPath: labels[LabelProjectPath],
		Role:        role,
	}, nil
}

// IsManaged reports whether a label set marks a container as created by
// tmuctl.
func IsManaged(labels map[string]string) bool {
	return labels[LabelManagedBy] == ManagedByValue
}

// FilterManagementLabels returns a copy of the label set without the
// tmu.* management labels. Display code uses this so `tmuctl status
// --json` shows the user's own labels without the bookkeeping noise.
func FilterManagementLabels(labels map[string]string) map[string]string {
	filtered := make(map[string]string)
	for key, value := range labels {
		if strings.HasPrefix(key, LabelPrefix) {
			continue
		}
		filtered[key] = value
	}
	return filtered
}
