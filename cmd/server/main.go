package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var rootCmd = &cobra.Command{
	Use:   "aiphoto-server",
	Short: "AI photo template configuration service",
	Long:  "Generates photo template configurations (steps, options, prompt template, sample images) from a natural-language description.",
}

func main() {
	// .env 仅用于本地开发，文件不存在时忽略
	_ = godotenv.Load()

	// 初始化 klog，-v 等参数挂到所有子命令
	klog.InitFlags(nil)
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	defer klog.Flush()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
