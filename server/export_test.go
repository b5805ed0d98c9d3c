package server

const SeedsPerRoom = seedsPerRoom

var AISeed = aiSeed
