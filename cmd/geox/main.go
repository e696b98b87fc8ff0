// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

// Command geox analyzes geo experiments (GBR, TBR) and plans them
// (preanalysis) from a geo x date panel.
package main

func main() {
	Execute()
}
