// The botgo command plays the TrustPVP trust game with a learning
// agent, training as it plays.
package main

func main() {
	Execute()
}
