package main

// General API documentation for swaggo.
//
// @title           askd API
// @version         1.0
// @description     Portfolio assistant: loads a small language model once and answers questions about its owner.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
