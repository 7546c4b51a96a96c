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
	"fmt"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/notargets/gocsm/InputParameters"
	"github.com/notargets/gocsm/model_problems/HyperelasticBox"
)

// VerifyCmd represents the verify command
var VerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the consistent tangent against finite differences of the forces",
	Long: `
Compares K V with (F(U + eps V) - F(U)) / eps for a seeded random direction V
over a sequence of steps eps. The relative error must decrease with eps until
round off takes over.

gocsm verify -I case.yaml --steps 1e-4,1e-5,1e-6,1e-7`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			mc     *ModelCase
			cp     *InputParameters.CaseParameters
			b      *HyperelasticBox.Box
			steps  []float64
			relErr []float64
		)
		if mc, err = readModelCase(cmd); err != nil {
			return
		}
		if steps, err = cmd.Flags().GetFloat64Slice("steps"); err != nil {
			return
		}
		if cp, err = processInput(mc); err != nil {
			return
		}
		if mc.ProfileDir != "" {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(mc.ProfileDir)).Stop()
		}
		if b, err = HyperelasticBox.NewBox(cp, mc.ProcLimit); err != nil {
			return
		}
		if relErr, err = b.VerifyTangent(steps, cp.Seed+1, mc.Verbose); err != nil {
			return
		}
		for i, eps := range steps {
			fmt.Printf("%8.1e %12.5e\n", eps, relErr[i])
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(VerifyCmd)
	addCaseFlags(VerifyCmd)
	VerifyCmd.Flags().Float64Slice("steps", []float64{1.e-4, 1.e-5, 1.e-6, 1.e-7},
		"finite difference steps")
}
