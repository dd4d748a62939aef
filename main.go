package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/samuelfneumann/goppo/environment/envconfig"
	"github.com/samuelfneumann/goppo/ppo"
	"github.com/samuelfneumann/goppo/tracker"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("missing environment \n\tusage: %v ENV [SEED] [RUN]",
			os.Args[0])
	}
	envName := os.Args[1]

	var seed uint64 = 1
	if len(os.Args) > 2 {
		var err error
		seed, err = strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("invalid seed %q: %v", os.Args[2], err)
		}
	}

	runName := ""
	if len(os.Args) > 3 {
		runName = os.Args[3]
	}

	env, err := envconfig.New(envName, seed)
	if err != nil {
		log.Fatalf("could not create environment: %v", err)
	}

	hp, err := ppo.ForEnvironment(envName)
	if err != nil {
		log.Fatalf("could not create hyperparameters: %v", err)
	}

	track, err := tracker.NewDiagnostics("", ppo.Name, envName, runName)
	if err != nil {
		log.Fatalf("could not create diagnostics tracker: %v", err)
	}
	defer track.Close()

	trainer, err := ppo.New(env, hp, track, seed)
	if err != nil {
		log.Fatalf("could not create trainer: %v", err)
	}

	if err := trainer.Run(); err != nil {
		log.Fatalf("training failed: %v", err)
	}

	fmt.Println("saved diagnostics to", track.Filename())
}
