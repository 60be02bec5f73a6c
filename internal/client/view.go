package client

import (
	"fmt"
	"strings"
)

var stepTitles = map[Step]string{
	StepWelcome:      "Welcome",
	StepAdminSetup:   "Admin account",
	StepUsageContext: "How will you use the store?",
	StepReview:       "Review",
	StepInstalling:   "Installing",
}

var usageLabels = map[string]string{
	"personal":       "Personal",
	"small_business": "Small business",
	"company":        "Company",
}

// View renders state as plain text. It has no side effects.
func View(state State) string {
	var b strings.Builder
	switch state.Mode {
	case ModeLoading:
		b.WriteString("Loading...\n")
	case ModeInstaller:
		viewWizard(&b, state.Wizard)
	case ModeLogin:
		b.WriteString("Sign in\n")
		if state.AdminEmail != "" {
			fmt.Fprintf(&b, "Administrator: %s\n", state.AdminEmail)
		}
	case ModeDashboard:
		b.WriteString("Dashboard\n")
		if state.AdminEmail != "" {
			fmt.Fprintf(&b, "Signed in as %s\n", state.AdminEmail)
		}
		if state.Path != "" && state.Path != "/" {
			fmt.Fprintf(&b, "Page: %s\n", state.Path)
		}
	}
	if state.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", state.Error)
	}
	if state.Busy {
		b.WriteString("Working...\n")
	}
	return b.String()
}

func viewWizard(b *strings.Builder, w WizardState) {
	fmt.Fprintf(b, "Step %d of %d: %s\n", int(w.Step), StepCount, stepTitles[w.Step])
	switch w.Step {
	case StepAdminSetup:
		fmt.Fprintf(b, "Admin email: %s\n", w.Form.AdminEmail)
	case StepUsageContext:
		fmt.Fprintf(b, "Usage: %s\n", usageLabel(w.Form.UsageContext))
	case StepReview:
		fmt.Fprintf(b, "Admin email: %s\n", w.Form.AdminEmail)
		fmt.Fprintf(b, "Usage: %s\n", usageLabel(w.Form.UsageContext))
	}
	if w.Error != "" {
		fmt.Fprintf(b, "Error: %s\n", w.Error)
	}
}

func usageLabel(usage string) string {
	if label, ok := usageLabels[usage]; ok {
		return label
	}
	return usage
}
