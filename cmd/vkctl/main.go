package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	vkc "github.com/gpulab/vkc"
)

var (
	deviceIndex int
	validation  bool
)

var rootCmd = &cobra.Command{
	Use:   "vkctl",
	Short: "Inspect Vulkan compute devices",
	Long:  "vkctl enumerates Vulkan physical devices and reports the limits relevant to compute dispatch.",
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "List physical devices and their compute limits",
	RunE:  runInfo,
}

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "List instance layers supported by the loader",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := vkc.InitializeForComputeOnly(); err != nil {
			return err
		}
		layers, err := vkc.SupportedLayers()
		if err != nil {
			return err
		}
		for _, l := range layers {
			fmt.Println(l)
		}
		return nil
	},
}

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "List instance extensions supported by the loader",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := vkc.InitializeForComputeOnly(); err != nil {
			return err
		}
		exts, err := vkc.SupportedExtensions()
		if err != nil {
			return err
		}
		for _, e := range exts {
			fmt.Println(e)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&validation, "validation", false, "enable validation layers")
	infoCmd.Flags().IntVar(&deviceIndex, "device", -1, "show one device index instead of all")
	rootCmd.AddCommand(infoCmd, layersCmd, extensionsCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	if err := vkc.InitializeForComputeOnly(); err != nil {
		return err
	}

	app := vkc.App{Name: "vkctl"}
	if validation {
		app.EnableValidation()
	}
	instance, err := app.CreateInstance()
	if err != nil {
		return err
	}
	defer instance.Destroy()

	devices, err := instance.PhysicalDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("no Vulkan devices found")
	}

	for i, d := range devices {
		if deviceIndex >= 0 && i != deviceIndex {
			continue
		}
		printDevice(i, d)
	}
	return nil
}

func printDevice(index int, d *vkc.PhysicalDevice) {
	info := d.Info()
	fmt.Printf("device %d: %s\n", index, info.Name)
	fmt.Printf("  vendor:              %s\n", d.VendorName())
	fmt.Printf("  type:                %s\n", vkc.DeviceTypeString(info.Type))
	fmt.Printf("  compute queue:       %v\n", d.HasComputeQueue())
	fmt.Printf("  max workgroup size:  %v\n", info.MaxWorkgroupSize)
	fmt.Printf("  max invocations:     %d\n", info.MaxWorkgroupInvocations)
	fmt.Printf("  max workgroup count: %v\n", info.MaxWorkgroupCount)
	fmt.Printf("  push constants:      %d bytes\n", info.MaxPushConstantsSize)
	fmt.Printf("  non-coherent atom:   %d bytes\n", info.NonCoherentAtomSize)
	fmt.Printf("  timestamp period:    %.2f ns/tick\n", info.TimestampPeriod)
	fmt.Printf("  memory types:\n")
	for i, mt := range info.MemoryTypes {
		fmt.Printf("    %2d: heap %d flags 0x%x\n", i, mt.HeapIndex, uint32(mt.PropertyFlags))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
