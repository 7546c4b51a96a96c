/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"io/ioutil"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gocsm/CSM"
	"github.com/notargets/gocsm/InputParameters"
	"github.com/notargets/gocsm/model_problems/HyperelasticBox"
)

type ModelCase struct {
	ICFile     string
	ProfileDir string
	ProcLimit  int
	Verbose    bool
}

// EvaluateCmd represents the evaluate command
var EvaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate forces, tangent and stress for a case file",
	Long: `
Meshes the box of the case file, applies its displacement field and evaluates
the requested element operations, reporting assembled norms and timings.

gocsm evaluate -I case.yaml`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			mc *ModelCase
			cp *InputParameters.CaseParameters
			b  *HyperelasticBox.Box
		)
		if mc, err = readModelCase(cmd); err != nil {
			return
		}
		if cp, err = processInput(mc); err != nil {
			return
		}
		if mc.ProfileDir != "" {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(mc.ProfileDir)).Stop()
		}
		if mc.Verbose {
			cp.Print()
		}
		if b, err = HyperelasticBox.NewBox(cp, mc.ProcLimit); err != nil {
			return
		}
		rep, err := b.Run(mc.Verbose)
		if errors.Is(err, CSM.ErrElementInversion) {
			fmt.Printf("warning: %d inverted elements: %v\n", len(rep.Degenerate), err)
			err = nil
		}
		return
	},
}

func readModelCase(cmd *cobra.Command) (mc *ModelCase, err error) {
	mc = &ModelCase{
		ProcLimit: viper.GetInt("parallel"),
		Verbose:   viper.GetBool("verbose"),
	}
	if mc.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
		return
	}
	mc.ProfileDir, err = cmd.Flags().GetString("profile")
	return
}

func processInput(mc *ModelCase) (cp *InputParameters.CaseParameters, err error) {
	var data []byte
	if len(mc.ICFile) == 0 {
		fmt.Printf("Example File:%s\n", InputParameters.ExampleFile)
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile)")
		return
	}
	if data, err = ioutil.ReadFile(mc.ICFile); err != nil {
		return
	}
	cp = &InputParameters.CaseParameters{}
	if err = cp.Parse(data); err != nil {
		err = fmt.Errorf("parsing %s: %w", mc.ICFile, err)
	}
	return
}

func addCaseFlags(c *cobra.Command) {
	c.Flags().StringP("inputConditionsFile", "I", "", "YAML file for the case parameters like:\n\t- Young, Poisson\n\t- Divisions, Lengths\n\t- DisplacementGradient")
	c.Flags().String("profile", "", "write a CPU profile to this directory")
}

func init() {
	rootCmd.AddCommand(EvaluateCmd)
	addCaseFlags(EvaluateCmd)
}
