package deploy

import (
	"time"

	"github.com/hedgepod/deployer/internal/app"
)

var (
	stringFlags = []app.FlagDef[string]{
		{Name: "private-key", ViperKey: "deployer.private-key", Description: "Deployer private key (prefer DEPLOYER_PRIVATE_KEY)"},
		{Name: "artifacts", ViperKey: "artifacts.path", Description: "Path of the compiled contracts.json"},
		{Name: "initial-supply", ViperKey: "deploy.initial-supply", Description: "AutoYieldToken initial supply in wei"},
	}

	durationFlags = []app.FlagDef[time.Duration]{
		{Name: "submission-timeout", ViperKey: "chain.submission-timeout", Description: "Maximum time to wait for each deployment transaction"},
	}

	delayFlags = []app.FlagDef[time.Duration]{
		{Name: "delay", ViperKey: "deploy.delay", Description: "Pause between two networks"},
	}

	intFlags = []app.FlagDef[int]{
		{Name: "parallelism", ViperKey: "deploy.parallelism", DefaultValue: 1, Description: "Number of networks deployed at the same time"},
	}
)
