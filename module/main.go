// Package main is a module with an rgbd slam front end model.
package main

import (
	"context"
	"strings"

	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/services/generic"
	"go.viam.com/utils"

	rgbdslam "github.com/viam-modules/viam-rgbd-slam"
	_ "github.com/viam-modules/viam-rgbd-slam/engine/fake"
	"github.com/viam-modules/viam-rgbd-slam/telemetry"
)

// Versioning variables which are replaced by LD flags.
var (
	Version     = "development"
	GitRevision = ""
)

func main() {
	utils.ContextualMain(mainWithArgs, module.NewLoggerFromArgs("rgbdSlamModule"))
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	var versionFields []interface{}
	if Version != "" {
		versionFields = append(versionFields, "version", Version)
	}
	if GitRevision != "" {
		versionFields = append(versionFields, "git_rev", GitRevision)
	}
	if len(versionFields) != 0 {
		logger.Infow(rgbdslam.Model.String(), versionFields...)
	} else {
		logger.Info(rgbdslam.Model.String() + " built from source; version unknown")
	}

	if len(args) == 2 && strings.HasSuffix(args[1], "-version") {
		return nil
	}

	if telemetry.Enabled(args) {
		exporter, err := telemetry.SetupTelemetry()
		if err != nil {
			return err
		}
		defer exporter.Stop()
		logger.Info("telemetry exporter started")
	}

	// Instantiate the module
	slamModule, err := module.NewModuleFromArgs(ctx)
	if err != nil {
		return err
	}

	// Add the rgbd slam model to the module
	if err = slamModule.AddModelFromRegistry(ctx, generic.API, rgbdslam.Model); err != nil {
		return err
	}

	// Start the module
	err = slamModule.Start(ctx)
	defer slamModule.Close(ctx)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
