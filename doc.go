/*
Package vkframe implements the resource lifetime and frame synchronization layer of a
Vulkan renderer. The API specific parts live in the vulkan sub package; this package only
depends on the small set of interfaces in interfaces.go, so the frame loop can be driven
by any backend, including the fakes used by the tests.

Resources

Every GPU object the application creates goes through a Context:

	pool, err := vkframe.CreateResource(ctx, func() (*vulkan.BufferPool, error) {
		return device.CreateHostBufferPool("uniforms", 64*1024, vk.BufferUsageUniformBufferBit)
	})

CreateResource stores the object in the context's SlotTable and pushes its release onto
the context's DeletionQueue. The returned Handle is a (index, generation) ticket: it is
cheap to copy, never frees anything, and resolving it after the resource was released
fails with ErrStaleHandle instead of touching a destroyed object. Context.ResetInstance
releases everything in the reverse order it was created, which is the order Vulkan
objects depend on each other.

Frames

A Renderer owns one FrameSync (fence, acquire semaphore, command buffer) per frame in
flight and one present semaphore per swapchain image. Each Render call:

	1. waits for the frame slot's fence, so its command buffer is no longer in use
	2. acquires a swapchain image, recreating the swapchain if it is out of date
	3. resets the fence and re-records the command buffer through the RecordFunc
	4. submits, waiting on the acquire semaphore and signaling the image's present semaphore
	5. presents, marking the swapchain for recreation on suboptimal or out of date results

Out of date and suboptimal results are recovered internally and only show up as a Status.
A fence timeout or failed submit is reported as StatusFatal and every later call returns
the same error.

Terms

	Fence		GPU to CPU signal that submitted work has finished
	Semaphore	GPU to GPU ordering between queue operations
	Swapchain	the ring of images owned by the presentation engine
	Frame in flight	a submitted frame whose fence has not signaled yet
*/
package vkframe
