// arenactl drives arenakit's allocation strategies with synthetic
// workloads and reports throughput and fragmentation.
package main

func main() {
	execute()
}
